/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llmcaller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"

	"chainguard.dev/memalign/metrics"
	"chainguard.dev/memalign/retry"
)

const defaultMaxTokens = 2048

// Anthropic implements Caller against the Anthropic Messages API.
type Anthropic struct {
	client       anthropic.Client
	genaiMetrics *metrics.GenAI
	retryConfig  retry.Config
}

// AnthropicOption configures an Anthropic caller.
type AnthropicOption func(*Anthropic) error

// WithRetryConfig overrides the retry configuration for transient API errors.
func WithRetryConfig(cfg retry.Config) AnthropicOption {
	return func(a *Anthropic) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		a.retryConfig = cfg
		return nil
	}
}

// NewAnthropic creates a Caller authenticated with the given API key.
func NewAnthropic(apiKey string, opts ...AnthropicOption) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("api key cannot be empty")
	}

	a := &Anthropic{
		client:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		genaiMetrics: metrics.NewGenAI("chainguard.ai.memalign"),
		retryConfig:  retry.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return a, nil
}

// Call implements Caller.
func (a *Anthropic) Call(ctx context.Context, req Request) (string, error) {
	log := clog.FromContext(ctx)

	if req.Model == "" {
		return "", errors.New("model cannot be empty")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	log.With("model", req.Model).
		With("system_length", len(req.System)).
		With("user_length", len(req.User)).
		Debug("Calling model")

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	a.genaiMetrics.RecordRequest(ctx, req.Model)

	message, err := retry.Do(ctx, a.retryConfig, "messages_new", isRetryableAnthropicError, func() (*anthropic.Message, error) {
		return a.client.Messages.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("anthropic call failed: %w", err)
	}

	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		a.genaiMetrics.RecordTokens(ctx, req.Model, message.Usage.InputTokens, message.Usage.OutputTokens)
	}

	var sb strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}
	text := sb.String()
	if text == "" {
		return "", errors.New("no text content in model response")
	}

	log.With("response_length", len(text)).Debug("Model responded")
	return text, nil
}

// isRetryableAnthropicError reports whether an error is a transient API
// error worth retrying: rate limit, overloaded, or gateway failures.
func isRetryableAnthropicError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 503, 504, 529:
			return true
		}
	}
	return false
}
