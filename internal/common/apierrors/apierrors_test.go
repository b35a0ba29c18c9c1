package apierrors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"session invalid", NewSessionInvalid("未登录"), ErrCodeSessionInvalid},
		{"code expired", NewAuthCodeExpired(""), ErrCodeAuthCodeExpired},
		{"wrapped", fmt.Errorf("login: %w", NewNetworkError(errors.New("refused"))), ErrCodeNetworkError},
		{"plain error", errors.New("boom"), ErrorCode("")},
		{"nil", nil, ErrorCode("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := NewUploadFailed("policy", "403 from storage")
	assert.True(t, Is(err, ErrCodeUploadFailed))
	assert.False(t, Is(err, ErrCodeRemoteError))
	assert.False(t, Is(nil, ErrCodeUploadFailed))

	wrapped := fmt.Errorf("photo clock: %w", err)
	assert.True(t, Is(wrapped, ErrCodeUploadFailed))
}

func TestRetryability(t *testing.T) {
	assert.True(t, NewNetworkError(errors.New("timeout")).Retryable)
	assert.True(t, NewCaptureTimeout(2*time.Minute).Retryable)
	assert.False(t, NewSessionInvalid("").Retryable)
	assert.False(t, NewConfigRejected("").Retryable)
	assert.False(t, NewLocalInputInvalid("").Retryable)
}

func TestErrorString(t *testing.T) {
	err := NewEmptyPlan("no data")
	assert.Contains(t, err.Error(), "EMPTY_PLAN")
	assert.Contains(t, err.Error(), "No internship plan")
}

func TestUploadFailedCarriesStep(t *testing.T) {
	err := NewUploadFailed("finalize", "server said no")
	assert.Contains(t, err.Message, `"finalize"`)
	assert.Equal(t, "server said no", err.Details)
}
