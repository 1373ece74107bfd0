package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietddude/fencer/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps domain errors onto HTTP status codes. The error
// message is sent verbatim so clients can classify it.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, domain.ErrFenceNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, domain.ErrNotAMember),
		errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
		msg = err.Error()
	case errors.Is(err, domain.ErrAlreadyMember),
		errors.Is(err, domain.ErrLastOwner),
		errors.Is(err, domain.ErrEmailTaken):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrSessionExpired),
		errors.Is(err, domain.ErrTokenRefreshFailed):
		status = http.StatusUnauthorized
		msg = err.Error()
	case errors.Is(err, domain.ErrFenceNameRequired),
		errors.Is(err, domain.ErrFenceNameTooLong),
		errors.Is(err, domain.ErrInvalidLatitude),
		errors.Is(err, domain.ErrInvalidLongitude),
		errors.Is(err, domain.ErrInvalidRadius),
		errors.Is(err, domain.ErrInvalidHysteresis),
		errors.Is(err, domain.ErrInvalidRole):
		status = http.StatusBadRequest
		msg = err.Error()
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}
