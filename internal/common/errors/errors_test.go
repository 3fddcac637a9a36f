// internal/common/errors/errors_test.go
package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardError_Error(t *testing.T) {
	err := NewCapabilityTimeoutError("analyze_user_risk")
	assert.Equal(t, "StandardError[CAPABILITY_TIMEOUT]: Capability call timed out", err.Error())
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Details, "analyze_user_risk")
}

func TestRetrySemantics(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retries   int
		retryable bool
	}{
		{ErrCodeCapabilityUnavailable, 3, true},
		{ErrCodeCapabilityTimeout, 2, true},
		{ErrCodeCapabilityNotFound, 0, false},
		{ErrCodeInvalidSessionID, 0, false},
		{ErrCodeInvalidParameter, 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.retries, GetRetryCount(tt.code))
			assert.Equal(t, tt.retryable, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestNonRetryableConstructors(t *testing.T) {
	assert.False(t, NewCapabilityNotFoundError("analyze_user_risk", "user 99999").Retryable)
	assert.False(t, NewInvalidSessionIDError("empty id").Retryable)
	assert.False(t, NewInvalidParameterError("cutoff out of range").Retryable)
}

func TestHasCode(t *testing.T) {
	err := NewCapabilityNotFoundError("get_risk_factors", "user 42")

	assert.True(t, HasCode(err, ErrCodeCapabilityNotFound))
	assert.False(t, HasCode(err, ErrCodeCapabilityTimeout))

	wrapped := fmt.Errorf("dispatch: %w", err)
	assert.True(t, HasCode(wrapped, ErrCodeCapabilityNotFound))

	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeCapabilityNotFound))
	assert.False(t, HasCode(nil, ErrCodeCapabilityNotFound))
}
