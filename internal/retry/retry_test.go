package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearBackoff(t *testing.T) {
	backoff := Linear(2 * time.Second)
	assert.Equal(t, time.Duration(0), backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(3))
}

func TestPolicyDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	policy := Policy{MaxAttempts: 3}

	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicyDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	policy := Policy{MaxAttempts: 3, Backoff: Linear(time.Millisecond)}

	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicyDoExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("still broken")
	policy := Policy{MaxAttempts: 3, Backoff: Linear(time.Millisecond)}

	err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return wantErr
	})

	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestPolicyDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := Policy{MaxAttempts: 5, Backoff: Linear(time.Hour)}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Do(ctx, func(context.Context) error {
		calls++
		return errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "no second attempt after cancellation")
}

func TestPolicyDoZeroAttemptsDefaultsToOne(t *testing.T) {
	calls := 0
	policy := Policy{}

	_ = policy.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("boom")
	})

	assert.Equal(t, 1, calls)
}
