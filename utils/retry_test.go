package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, Logger: NewNopLogger()}
	calls := 0

	err := r.Do("connect", func() error {
		calls++
		if calls < 2 {
			return errors.New("refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryWrapsLastError(t *testing.T) {
	boom := errors.New("refused")
	r := &RetryConfig{MaxAttempts: 2, Logger: NewNopLogger()}
	calls := 0

	err := r.Do("connect", func() error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}
