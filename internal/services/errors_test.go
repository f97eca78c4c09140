package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyStoreErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, CodeConflict},
		{"deadlock detected", &pq.Error{Code: "40P01"}, CodeConflict},
		{"lock not available", &pq.Error{Code: "55P03"}, CodeBusy},
		{"unique violation", &pq.Error{Code: "23505"}, CodeStoreUnavailable},
		{"deadline exceeded", context.DeadlineExceeded, CodeBusy},
		{"context canceled", context.Canceled, CodeBusy},
		{"version conflict", fmt.Errorf("ticket x: %w", errVersionConflict), CodeConflict},
		{"plain error", errors.New("connection refused"), CodeStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStoreErr(tt.err).Code)
		})
	}
}

func TestErrCode(t *testing.T) {
	assert.Equal(t, CodeFullyPaid, ErrCode(ledgerErr(CodeFullyPaid, nil)))
	assert.Equal(t, CodeNotFound, ErrCode(fmt.Errorf("wrapped: %w", ledgerErr(CodeNotFound, nil))))
	assert.Equal(t, CodeStoreUnavailable, ErrCode(errors.New("untyped")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(CodeConflict))
	assert.True(t, retryable(CodeStoreUnavailable))
	assert.False(t, retryable(CodeNotFound))
	assert.False(t, retryable(CodeFullyPaid))
	assert.False(t, retryable(CodeAmountExceedsRemaining))
	assert.False(t, retryable(CodeBusy))
	assert.False(t, retryable(CodeForbidden))
}
