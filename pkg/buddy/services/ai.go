package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jholhewres/buddy/pkg/buddy/metrics"
	"github.com/sashabaranov/go-openai"
)

// ErrEmptyAnswer is returned when the model produced no text.
var ErrEmptyAnswer = errors.New("empty completion")

// AIClient answers questions through an OpenAI-compatible chat endpoint.
type AIClient struct {
	cfg     AIConfig
	client  *openai.Client
	metrics *metrics.Metrics
}

// NewAIClient returns nil when no API key is configured.
func NewAIClient(cfg AIConfig, m *metrics.Metrics) *AIClient {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &AIClient{
		cfg:     cfg,
		client:  openai.NewClientWithConfig(oc),
		metrics: m,
	}
}

// Answer sends the question with the simple-language instruction and returns
// the trimmed completion.
func (c *AIClient) Answer(ctx context.Context, question string) (answer string, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveUpstream("ai", time.Since(start), err) }()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	maxTokens := c.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: "Answer or translate in simple language:\n" + question,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	answer = strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}
