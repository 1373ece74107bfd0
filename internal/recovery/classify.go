// Package recovery implements the client-side failure recovery
// controller: error classification, bounded automatic retry with
// exponential backoff, manual recovery, and terminal escapes to the
// host environment (reload, sign-in).
package recovery

import (
	"math"
	"strings"
	"time"
)

// Category drives which recovery surface copy and actions are shown.
type Category string

const (
	CategoryNetwork Category = "network"
	CategoryAuth    Category = "auth"
	CategoryGeneric Category = "generic"
)

// retryableKeywords is the fixed set of message substrings that make a
// failure eligible for automatic retry. Matching is lower-cased
// substring matching; the list is deliberately fuzzy and must not be
// replaced with structured error codes.
var retryableKeywords = []string{
	"network error",
	"timeout",
	"connection failed",
	"service unavailable",
	"token refresh failed",
}

// Classification holds the two independent facets derived from an
// error message.
type Classification struct {
	Category  Category
	Retryable bool
}

// Classify derives the presentation category and retryability from an
// error message. Category selection is order-sensitive: network is
// checked before auth, so "Network error: Unable to connect to
// authentication service" classifies as network.
func Classify(message string) Classification {
	msg := strings.ToLower(message)

	cls := Classification{Category: CategoryGeneric}

	for _, kw := range retryableKeywords {
		if strings.Contains(msg, kw) {
			cls.Retryable = true
			break
		}
	}

	switch {
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection"):
		cls.Category = CategoryNetwork
	case strings.Contains(msg, "auth") || strings.Contains(msg, "token") ||
		strings.Contains(msg, "session"):
		cls.Category = CategoryAuth
	}

	return cls
}

const (
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 10 * time.Second
)

// RetryDelay calculates the automatic retry delay for the given retry
// count: baseRetryDelay * 2^count, capped at maxRetryDelay (1s, 2s,
// 4s, 8s, 10s, ...).
func RetryDelay(retryCount int) time.Duration {
	delay := float64(baseRetryDelay) * math.Pow(2, float64(retryCount))
	if delay > float64(maxRetryDelay) {
		return maxRetryDelay
	}
	return time.Duration(delay)
}
