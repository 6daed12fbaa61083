package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spigell/resume-reviewer/internal/artifacts"
	"github.com/spigell/resume-reviewer/internal/jdindex"
)

const (
	CodeInvalidRequest = "invalid_request"
	CodeNotReady       = "not_ready"
	CodeUnknownRole    = "unknown_role"
	CodeReviewFailed   = "review_failed"
	CodeInternal       = "internal"

	notReadyMessage = "system not ready"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondNotReady reports whether err means the index cannot serve yet and, if
// so, answers 503 without exposing the cause.
func respondNotReady(c *gin.Context, err error) bool {
	if !notReady(err) {
		return false
	}
	c.Error(err)
	RespondError(c, http.StatusServiceUnavailable, CodeNotReady, errors.New(notReadyMessage))
	return true
}

func notReady(err error) bool {
	return errors.Is(err, jdindex.ErrNotReady) ||
		errors.Is(err, artifacts.ErrNotBuilt) ||
		errors.Is(err, artifacts.ErrMissingArtifact) ||
		errors.Is(err, artifacts.ErrCorruptArtifact)
}
