// Package translate turns the Swedish free text of a notice into English
// through an OpenAI-compatible chat completion endpoint.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Defaults for the completion call.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 1000
	DefaultTimeout     = 20 * time.Second
)

// Sentinel errors.
var (
	ErrNotConfigured = errors.New("translation is not configured")
	ErrEmptyResponse = errors.New("translation returned no text")
	ErrRequest       = errors.New("translation request failed")
)

const systemPrompt = "You translate Swedish rental notices into English. " +
	"Reply with the English translation only, keeping line breaks, numbers and names unchanged."

// Config configures an OpenAI client.
type Config struct {
	APIKey      string
	BaseURL     string // empty = api.openai.com
	Model       string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
	MaxRetries  int
}

// OpenAI translates through the chat completions API.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	timeout     time.Duration
}

// New returns a translator for cfg. Zero fields take the package defaults.
func New(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
	}, nil
}

// Translate returns the English rendering of text.
// Blank input short-circuits to "" without a request.
// Output may differ between calls for the same input.
func (o *OpenAI) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
		MaxTokens:   openai.Int(o.maxTokens),
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
