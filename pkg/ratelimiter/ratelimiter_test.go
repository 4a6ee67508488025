package ratelimiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"anoa.com/cluverse/pkg/apperror"
	"github.com/stretchr/testify/assert"
)

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Acquire(context.Background(), "otp", "a@b.c", time.Minute))
	assert.NoError(t, New(nil).Acquire(context.Background(), "otp", "a@b.c", time.Minute))
	assert.NoError(t, New(nil).Release(context.Background(), "otp", "a@b.c"))
}

func TestRateLimitErrorMapsToSentinel(t *testing.T) {
	err := error(&RateLimitError{Message: "wait", RetryAfter: time.Second})
	assert.True(t, errors.Is(err, apperror.ErrRateLimitExceeded))
	assert.Equal(t, 429, apperror.MapErrorToStatus(err))
}
