package domain

import "errors"

var (
	// ErrFenceNotFound is returned when a fence doesn't exist or is soft-deleted.
	ErrFenceNotFound = errors.New("fence not found")

	// ErrFenceNameRequired is returned when a fence has no name.
	ErrFenceNameRequired = errors.New("fence name is required")

	// ErrFenceNameTooLong is returned when a fence name exceeds the limit.
	ErrFenceNameTooLong = errors.New("fence name too long")

	// ErrInvalidRadius is returned when radius is not positive.
	ErrInvalidRadius = errors.New("radius must be positive")

	// ErrInvalidHysteresis is returned when the hysteresis band is
	// negative or at least as wide as the radius.
	ErrInvalidHysteresis = errors.New("hysteresis must be non-negative and smaller than radius")

	// ErrInvalidLatitude is returned when latitude is outside [-90, 90].
	ErrInvalidLatitude = errors.New("latitude out of range")

	// ErrInvalidLongitude is returned when longitude is outside [-180, 180].
	ErrInvalidLongitude = errors.New("longitude out of range")

	// ErrUserNotFound is returned when a user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrNotAMember is returned when a user has no membership in a fence.
	ErrNotAMember = errors.New("not a member of this fence")

	// ErrAlreadyMember is returned when adding a user who is already a member.
	ErrAlreadyMember = errors.New("already a member of this fence")

	// ErrLastOwner is returned when removing or demoting the only owner.
	ErrLastOwner = errors.New("cannot remove the last owner")

	// ErrInvalidRole is returned for an unknown membership role.
	ErrInvalidRole = errors.New("invalid role")

	// ErrForbidden is returned when the member's role does not allow the operation.
	ErrForbidden = errors.New("insufficient role")

	// ErrEmailTaken is returned when registering with an email that is
	// already in use.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is the auth failure the client-side recovery
	// controller classifies; the message wording is part of the contract.
	ErrSessionExpired = errors.New("authentication session expired")

	// ErrTokenRefreshFailed is returned when a refresh token is revoked,
	// rotated away, or expired. Retryable by the recovery controller.
	ErrTokenRefreshFailed = errors.New("token refresh failed")
)
