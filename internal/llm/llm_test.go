package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func TestWithRetry(t *testing.T) {
	prompt := Prompt{System: "s", User: "u"}

	t.Run("trims successful completion", func(t *testing.T) {
		m := new(mockCompleter)
		m.On("Complete", mock.Anything, prompt).Return("  hello \n", nil).Once()

		got, err := WithRetry(m, time.Second).Complete(context.Background(), prompt)
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
		m.AssertExpectations(t)
	})

	t.Run("retries an empty completion once", func(t *testing.T) {
		m := new(mockCompleter)
		m.On("Complete", mock.Anything, prompt).Return("   ", nil).Once()
		m.On("Complete", mock.Anything, prompt).Return("second", nil).Once()

		got, err := WithRetry(m, time.Second).Complete(context.Background(), prompt)
		require.NoError(t, err)
		assert.Equal(t, "second", got)
		m.AssertExpectations(t)
	})

	t.Run("fails after two errors", func(t *testing.T) {
		m := new(mockCompleter)
		m.On("Complete", mock.Anything, prompt).Return("", errors.New("503")).Twice()

		_, err := WithRetry(m, time.Second).Complete(context.Background(), prompt)
		require.Error(t, err)
		m.AssertExpectations(t)
	})
}

func TestOpenAIComplete(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4.1-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Pack light."}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAI("test-key", "gpt-4.1-mini", option.WithBaseURL(srv.URL+"/"))
	got, err := c.Complete(context.Background(), Prompt{
		System: "You are a travel assistant.", User: "What to pack?", MaxTokens: 350, Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Pack light.", got)

	assert.Equal(t, "gpt-4.1-mini", received["model"])
	assert.EqualValues(t, 350, received["max_tokens"])
	assert.InDelta(t, 0.7, received["temperature"], 0.0001)
	msgs, ok := received["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}
