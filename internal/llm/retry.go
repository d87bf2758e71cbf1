package llm

import (
	"context"
	"errors"
	"time"
)

// maxAttempts is the bounded retry budget for rate-limited calls.
const maxAttempts = 3

// sleep is swapped out in tests.
var sleep = time.Sleep

// ChatWithRetry calls client.Chat with bounded retry. Only rate-limit
// failures are retried, with backoff doubling from 2s; every other error is
// returned immediately. After exhausting the budget the last error is
// returned — callers decide how to degrade.
func ChatWithRetry(ctx context.Context, client Client, messages []Message) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		content, err := client.Chat(ctx, messages)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !errors.Is(err, ErrRateLimited) {
			return "", err
		}
		if attempt < maxAttempts-1 {
			sleep(time.Duration(2*(attempt+1)) * time.Second)
		}
	}
	return "", lastErr
}
