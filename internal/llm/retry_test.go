package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	calls   int
	outputs []string
	errs    []error
}

func (c *scriptedClient) Chat(_ context.Context, _ []Message) (string, error) {
	i := c.calls
	c.calls++
	if i >= len(c.outputs) {
		i = len(c.outputs) - 1
	}
	return c.outputs[i], c.errs[i]
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = orig })
	return &slept
}

func TestChatWithRetry_RateLimitedThenSuccess(t *testing.T) {
	slept := stubSleep(t)
	client := &scriptedClient{
		outputs: []string{"", "ok"},
		errs:    []error{ErrRateLimited, nil},
	}

	got, err := ChatWithRetry(context.Background(), client, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, *slept)
}

func TestChatWithRetry_ExhaustsBudget(t *testing.T) {
	slept := stubSleep(t)
	client := &scriptedClient{
		outputs: []string{""},
		errs:    []error{ErrRateLimited},
	}

	_, err := ChatWithRetry(context.Background(), client, nil)

	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, client.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *slept,
		"backoff doubles between attempts")
}

func TestChatWithRetry_OtherErrorsNotRetried(t *testing.T) {
	slept := stubSleep(t)
	client := &scriptedClient{
		outputs: []string{""},
		errs:    []error{ErrUnauthorized},
	}

	_, err := ChatWithRetry(context.Background(), client, nil)

	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, client.calls)
	assert.Empty(t, *slept)
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrRateLimited, ErrUnavailable))
	assert.False(t, errors.Is(ErrUnauthorized, ErrRateLimited))
}
