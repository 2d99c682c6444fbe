package server

import (
	"net/http"
	"testing"

	batchdomain "github.com/basangdata/ingestd/internal/batch/domain"
	"github.com/basangdata/ingestd/internal/extract"
	"github.com/basangdata/ingestd/internal/inference"
	quotadomain "github.com/basangdata/ingestd/internal/quota/domain"
	"github.com/basangdata/ingestd/internal/tier"
	userdomain "github.com/basangdata/ingestd/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapQuotaDenied(t *testing.T) {
	status, payload := mapError(&quotadomain.DeniedError{Used: 50, Limit: 50})

	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "quota_denied", payload.Type)
	require.NotNil(t, payload.Used)
	require.NotNil(t, payload.Limit)
	assert.Equal(t, 50, *payload.Used)
	assert.Equal(t, 50, *payload.Limit)
}

func TestMapDomainErrors(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
		{"unknown tier", tier.ErrUnknownTier, http.StatusBadRequest, "invalid_request"},
		{"batch not eligible", batchdomain.ErrNotEligible, http.StatusForbidden, "batch_not_eligible"},
		{"batch already open", batchdomain.ErrSessionAlreadyOpen, http.StatusConflict, "batch_session_already_open"},
		{"batch not open", batchdomain.ErrSessionNotOpen, http.StatusNotFound, "batch_session_not_open"},
		{"user not found", userdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"extraction failed", extract.ErrNoStructureFound, http.StatusUnprocessableEntity, "extraction_failed"},
		{"inference timeout", inference.ErrTimeout, http.StatusServiceUnavailable, "upstream_unavailable"},
		{"unknown", assert.AnError, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantType, payload.Type)
			assert.Nil(t, payload.Used)
		})
	}
}
