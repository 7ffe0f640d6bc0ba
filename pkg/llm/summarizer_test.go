package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/newsdesk/pkg/config"
)

func testConfig(url string) config.LLMConfig {
	temperature := 0.3
	return config.LLMConfig{
		Endpoint:    url + "/v1",
		APIKey:      "test-key",
		Model:       "llama-3.3-70b-versatile",
		Temperature: &temperature,
		MaxTokens:   500,
		Timeout:     5 * time.Second,
	}
}

func TestSummarizer_Summarize(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "  LNG exports expanded.\n\nThe region benefits.  "}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := NewSummarizer(testConfig(server.URL))
	res, err := s.Summarize(context.Background(), SummarizeRequest{Title: "QatarEnergy signs deal", ExecSummary: "A long-term LNG deal."})
	require.NoError(t, err)
	assert.Equal(t, "LNG exports expanded.\n\nThe region benefits.", res)

	assert.Equal(t, "llama-3.3-70b-versatile", gotReq.Model)
	assert.Equal(t, 500, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, gotReq.Messages[0].Role)
	prompt := gotReq.Messages[0].Content
	assert.Contains(t, prompt, "expat audience in Doha, Qatar")
	assert.Contains(t, prompt, "Headline: QatarEnergy signs deal\nBrief summary: A long-term LNG deal.\n\nWrite the full analysis now:")
	assert.NotContains(t, prompt, "Article text:")
}

func TestSummarizer_Temperature(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw = nil
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	t.Run("configured", func(t *testing.T) {
		_, err := NewSummarizer(testConfig(server.URL)).Summarize(context.Background(), SummarizeRequest{Title: "t"})
		require.NoError(t, err)
		require.Contains(t, raw, "temperature")
		assert.InDelta(t, 0.3, raw["temperature"], 1e-6)
	})

	t.Run("zero sent, not dropped", func(t *testing.T) {
		cfg := testConfig(server.URL)
		zero := 0.0
		cfg.Temperature = &zero
		_, err := NewSummarizer(cfg).Summarize(context.Background(), SummarizeRequest{Title: "t"})
		require.NoError(t, err)
		require.Contains(t, raw, "temperature")
		assert.InDelta(t, 0, raw["temperature"], 1e-6)
	})

	t.Run("unset uses default", func(t *testing.T) {
		cfg := testConfig(server.URL)
		cfg.Temperature = nil
		_, err := NewSummarizer(cfg).Summarize(context.Background(), SummarizeRequest{Title: "t"})
		require.NoError(t, err)
		assert.InDelta(t, 0.3, raw["temperature"], 1e-6)
	})
}

func TestSummarizer_SummarizeWithText(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt = req.Messages[0].Content
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	s := NewSummarizer(cfg)
	_, err := s.Summarize(context.Background(), SummarizeRequest{Title: "t", ExecSummary: "s", Text: " full text "})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Brief summary: s\nArticle text: full text\n\nWrite")

	cfg.SystemPrompt = "Summarize {{title}} / {{summary}}"
	s = NewSummarizer(cfg)
	_, err = s.Summarize(context.Background(), SummarizeRequest{Title: "t", ExecSummary: "s"})
	require.NoError(t, err)
	assert.Equal(t, "Summarize t / s", prompt)
}

func TestSummarizer_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{}})
	}))
	defer server.Close()

	res, err := NewSummarizer(testConfig(server.URL)).Summarize(context.Background(), SummarizeRequest{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, Unavailable, res)
}

func TestSummarizer_Errors(t *testing.T) {
	t.Run("no title", func(t *testing.T) {
		_, err := NewSummarizer(testConfig("http://127.0.0.1:1")).Summarize(context.Background(), SummarizeRequest{Title: "  "})
		assert.ErrorIs(t, err, ErrNoTitle)
	})

	t.Run("not configured", func(t *testing.T) {
		cfg := testConfig("http://127.0.0.1:1")
		cfg.APIKey = ""
		s := NewSummarizer(cfg)
		assert.False(t, s.Configured())
		_, err := s.Summarize(context.Background(), SummarizeRequest{Title: "t"})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("upstream api error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached","type":"tokens"}}`))
		}))
		defer server.Close()

		_, err := NewSummarizer(testConfig(server.URL)).Summarize(context.Background(), SummarizeRequest{Title: "t"})
		require.Error(t, err)
		var upErr *UpstreamError
		require.True(t, errors.As(err, &upErr))
		assert.Equal(t, http.StatusTooManyRequests, upErr.Status)
		assert.Equal(t, "rate limit reached", upErr.Detail)
		assert.Contains(t, err.Error(), "status 429")
	})

	t.Run("upstream unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := NewSummarizer(testConfig(url)).Summarize(context.Background(), SummarizeRequest{Title: "t"})
		require.Error(t, err)
		var upErr *UpstreamError
		require.True(t, errors.As(err, &upErr))
		assert.Equal(t, 0, upErr.Status)
		assert.NotEmpty(t, upErr.Detail)
	})
}

func TestSummarizer_RateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RateLimit = 200 * time.Millisecond
	s := NewSummarizer(cfg)

	st := time.Now()
	for range 2 {
		_, err := s.Summarize(context.Background(), SummarizeRequest{Title: "t"})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(st), 150*time.Millisecond, "second call waits for the limiter")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// no token available and context expires first
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Summarize(ctx, SummarizeRequest{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
