// Package llm provides the completion provider boundary. The classification
// core owns prompt construction and response parsing; this package owns only
// transport and usage accounting.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"github.com/sortdeck/sortdeck/internal/accounting"
	"github.com/sortdeck/sortdeck/internal/config"
	"github.com/sortdeck/sortdeck/internal/provider"
)

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Anthropic is a Completer backed by the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	apiKey    string
	model     string
	maxTokens int64
	timeout   time.Duration
	acct      *accounting.Collector
}

// NewAnthropic creates an Anthropic completer from config.
func NewAnthropic(cfg config.LLM, acct *accounting.Collector) *Anthropic {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Anthropic{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
		acct:      acct,
	}
}

// Complete implements Completer.
func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("%w: no LLM API key configured", provider.ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		a.acct.RecordFailure()
		return "", fmt.Errorf("%w: anthropic messages: %w", provider.ErrProvider, err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			a.acct.RecordCompletion(prompt, block.Text, message.Usage.InputTokens, message.Usage.OutputTokens)
			log.Debug().
				Int64("inputTokens", message.Usage.InputTokens).
				Int64("outputTokens", message.Usage.OutputTokens).
				Int("responseBytes", len(block.Text)).
				Msg("LLM completion")
			return block.Text, nil
		}
	}

	a.acct.RecordFailure()
	return "", fmt.Errorf("%w: no text content in response", provider.ErrProvider)
}
