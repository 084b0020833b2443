// Package llm adapts text-completion providers to a single prompt-in,
// text-out interface.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/huguadventures/travel-assistant-go/internal/retry"
)

// ErrEmptyCompletion is returned when a provider answers with no text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

type retrying struct {
	next   Completer
	policy retry.Policy
}

// WithRetry bounds each completion attempt by timeout and retries a failed
// attempt once. Empty completions count as failures.
func WithRetry(c Completer, timeout time.Duration) Completer {
	return &retrying{next: c, policy: retry.Once("llm.complete", timeout)}
}

func (r *retrying) Complete(ctx context.Context, p Prompt) (string, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		text, err := r.next.Complete(ctx, p)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", ErrEmptyCompletion
		}
		return text, nil
	})
}
