package helpers

import (
	"errors"
	"testing"
	"time"

	"otc-broker/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestBrokerErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDatabaseError("failed to open database", cause)

	assert.Contains(t, err.Error(), "failed to open database")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)

	var dbErr *DatabaseError
	assert.ErrorAs(t, err, &dbErr)
}

func TestValidationErrorWithoutCause(t *testing.T) {
	err := NewValidationError("timeframe must be positive")
	assert.Equal(t, "timeframe must be positive", err.Error())
	assert.Nil(t, errors.Unwrap(err.(*ValidationError)))
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoffSucceedsEventually(t *testing.T) {
	log := logger.NewLogger("ERROR", "test")

	calls := 0
	err := RetryWithBackoff(log, "flaky op", 5, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffExhausts(t *testing.T) {
	log := logger.NewLogger("ERROR", "test")

	calls := 0
	err := RetryWithBackoff(log, "doomed op", 3, time.Millisecond, func() error {
		calls++
		return errors.New("permanent")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "doomed op failed after 3 attempts")
}
