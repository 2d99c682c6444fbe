package server

import (
	"errors"
	"net/http"

	batchdomain "github.com/basangdata/ingestd/internal/batch/domain"
	"github.com/basangdata/ingestd/internal/extract"
	"github.com/basangdata/ingestd/internal/inference"
	quotadomain "github.com/basangdata/ingestd/internal/quota/domain"
	sinkdomain "github.com/basangdata/ingestd/internal/sink/domain"
	"github.com/basangdata/ingestd/internal/tier"
	userdomain "github.com/basangdata/ingestd/internal/user/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`

	// Quota denials carry the counters so a client can show the user
	// where they stand without a second call.
	Used  *int `json:"used,omitempty"`
	Limit *int `json:"limit,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrForbidden      = errors.New("forbidden")
	ErrRateLimited    = errors.New("rate_limited")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var denied *quotadomain.DeniedError
	if errors.As(err, &denied) {
		return http.StatusTooManyRequests, errorPayload{
			Type:    "quota_denied",
			Message: "daily quota exhausted",
			Used:    &denied.Used,
			Limit:   &denied.Limit,
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, userdomain.ErrInvalidExternalID),
		errors.Is(err, userdomain.ErrInvalidTemplate),
		errors.Is(err, tier.ErrUnknownTier):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, batchdomain.ErrNotEligible):
		return http.StatusForbidden, errorPayload{
			Type:    "batch_not_eligible",
			Message: "tier does not allow batch sessions",
		}
	case errors.Is(err, batchdomain.ErrSessionAlreadyOpen):
		return http.StatusConflict, errorPayload{
			Type:    "batch_session_already_open",
			Message: "a batch session is already open",
		}
	case errors.Is(err, batchdomain.ErrSessionNotOpen):
		return http.StatusNotFound, errorPayload{
			Type:    "batch_session_not_open",
			Message: "no batch session is open",
		}
	case errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many submissions",
		}
	case errors.Is(err, extract.ErrNoStructureFound),
		errors.Is(err, extract.ErrMalformedAfterRepair),
		errors.Is(err, extract.ErrEmptyResult):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "extraction_failed",
			Message: err.Error(),
		}
	case errors.Is(err, inference.ErrTimeout),
		errors.Is(err, inference.ErrTransport),
		errors.Is(err, inference.ErrEmpty),
		errors.Is(err, sinkdomain.ErrSinkUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "upstream_unavailable",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
