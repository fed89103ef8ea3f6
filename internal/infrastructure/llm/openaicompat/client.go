// Package openaicompat classifies grants through an OpenAI-compatible
// chat-completions endpoint (Groq by default).
package openaicompat

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 100
	DefaultTimeout     = 30 * time.Second

	chatCompletionsPath = "/chat/completions"
	operationClassify   = "llm.chat_completions"
)

// Recorder receives one observation per Classify call.
type Recorder interface {
	RecordClassification(outcome string, tagCount int, duration time.Duration)
}

type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	Vocabulary *domain.Vocabulary
	Executor   *resilience.Executor
	Recorder   Recorder
	HTTPClient *http.Client
}

type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration

	vocabulary *domain.Vocabulary
	executor   *resilience.Executor
	recorder   Recorder
	httpClient *http.Client
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	vocabulary := opts.Vocabulary
	if vocabulary == nil {
		vocabulary = domain.DefaultVocabulary()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      opts.APIKey,
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
		vocabulary:  vocabulary,
		executor:    opts.Executor,
		recorder:    opts.Recorder,
		httpClient:  httpClient,
	}
}

// Classify asks the model for tags and keeps only exact vocabulary members, in the
// order the model emitted them. Every failure yields an empty slice. The call ignores
// cancellation of ctx and is bounded only by the configured timeout.
func (c *Client) Classify(ctx context.Context, name, description string) []string {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	slog.Info("classification_attempt", "grant_name", name, "model", c.model)

	raw, err := c.complete(callCtx, buildTaggingPrompt(name, description, c.vocabulary.Tags()))
	if err != nil {
		reason := degradeReason(err)
		slog.Warn("classification_degraded", "grant_name", name, "reason", reason, "error", err)
		c.record(reason, 0, time.Since(start))
		return []string{}
	}
	slog.Info("classification_reply", "grant_name", name, "raw", raw)

	tags := c.vocabulary.Filter(splitTags(raw))
	slog.Info("classification_tags", "grant_name", name, "tags", tags)
	c.record(outcomeTagged, len(tags), time.Since(start))
	return tags
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	request := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var raw []byte
	call := func(callCtx context.Context) error {
		var err error
		raw, err = c.postJSON(callCtx, chatCompletionsPath, request, "chat_completions")
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operationClassify, call, classifyLLMError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}

	content, err := firstChoiceContent(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *Client) record(outcome string, tagCount int, duration time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordClassification(outcome, tagCount, duration)
	}
}

func splitTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}
