// Package llm produces on-demand article analysis through an OpenAI-compatible chat completion API
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/umputun/newsdesk/pkg/config"
)

// ErrNotConfigured returned when no api key is set
var ErrNotConfigured = errors.New("llm api key not configured")

// ErrNoTitle returned for requests without a title
var ErrNoTitle = errors.New("title is required")

// Unavailable is the summary returned when upstream responds with no content
const Unavailable = "Summary unavailable."

// UpstreamError is a failure of the llm endpoint
type UpstreamError struct {
	Status int    // http status of upstream response, 0 if none
	Detail string // upstream error text
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm upstream error, status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("llm upstream error: %s", e.Detail)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// default prompt, {{title}}, {{summary}} and {{text}} are substituted
const defaultPrompt = `You are a news analyst for an expat audience in Doha, Qatar. Based on this headline and brief summary, write a 2-3 paragraph analysis in English. Cover: what happened, why it matters for Qatar or the broader region, and wider implications. Be factual and concise. No bullet points.

Headline: {{title}}
Brief summary: {{summary}}
{{text}}
Write the full analysis now:`

// SummarizeRequest contains article data for the analysis
type SummarizeRequest struct {
	Title       string
	ExecSummary string
	Text        string // extracted article text, optional
}

// Summarizer uses LLM to write article analysis
type Summarizer struct {
	client  *openai.Client
	config  config.LLMConfig
	limiter *rate.Limiter
	prompt  string
}

// NewSummarizer creates a new LLM summarizer. Upstream requests are spaced by cfg.RateLimit.
func NewSummarizer(cfg config.LLMConfig) *Summarizer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	// use custom prompt if provided, otherwise use default
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultPrompt
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Every(cfg.RateLimit)
	}

	return &Summarizer{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		limiter: rate.NewLimiter(limit, 1),
		prompt:  prompt,
	}
}

// Configured reports if api key is set
func (s *Summarizer) Configured() bool {
	return s.config.APIKey != ""
}

// Summarize requests analysis for the article. Returns ErrNoTitle, ErrNotConfigured
// or *UpstreamError; upstream response without content gives Unavailable.
func (s *Summarizer) Summarize(ctx context.Context, req SummarizeRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", ErrNoTitle
	}
	if !s.Configured() {
		return "", ErrNotConfigured
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for rate limiter: %w", err)
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	// zero temperature is omitted from the request by the client, smallest nonzero value keeps it deterministic
	temperature := float32(s.config.GetTemperature())
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Temperature: temperature,
		MaxTokens:   s.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: s.buildPrompt(req),
			},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		lgr.Printf("[WARN] llm request for %q failed: %v", req.Title, err)
		return "", upstreamError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		lgr.Printf("[WARN] empty llm response for %q", req.Title)
		return Unavailable, nil
	}

	lgr.Printf("[DEBUG] summarized %q, %d tokens used", req.Title, resp.Usage.TotalTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *Summarizer) buildPrompt(req SummarizeRequest) string {
	text := ""
	if t := strings.TrimSpace(req.Text); t != "" {
		text = "Article text: " + t + "\n"
	}
	r := strings.NewReplacer("{{title}}", req.Title, "{{summary}}", req.ExecSummary, "{{text}}", text)
	return r.Replace(s.prompt)
}

// upstreamError converts client error, keeping status of api errors
func upstreamError(err error) *UpstreamError {
	res := &UpstreamError{Detail: err.Error(), Err: err}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		res.Status, res.Detail = apiErr.HTTPStatusCode, apiErr.Message
		return res
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		res.Status = reqErr.HTTPStatusCode
		if len(reqErr.Body) > 0 {
			res.Detail = string(reqErr.Body)
		}
	}
	return res
}
