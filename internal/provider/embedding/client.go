// Package embedding provides the embedding provider adapter. It turns text
// into a unit-length vector via an OpenAI-compatible embeddings endpoint and
// feeds usage into the accounting collector.
package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/sortdeck/sortdeck/internal/accounting"
	"github.com/sortdeck/sortdeck/internal/config"
	"github.com/sortdeck/sortdeck/internal/provider"
	"github.com/sortdeck/sortdeck/pkg/models"
	"github.com/sortdeck/sortdeck/pkg/vectormath"
)

// Client calls an OpenAI-compatible /embeddings endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	dimension  int
	acct       *accounting.Collector
}

// NewClient creates an embedding client from config.
func NewClient(cfg config.Embedding, acct *accounting.Collector) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		dimension:  cfg.Dimension,
		acct:       acct,
	}
}

// Dimension returns the vector dimension this client enforces.
func (c *Client) Dimension() int {
	return c.dimension
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int64 `json:"prompt_tokens"`
		TotalTokens  int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Embed returns the normalized embedding for text.
func (c *Client) Embed(ctx context.Context, text string) (models.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, provider.ErrEmptyInput
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: no embedding API key configured", provider.ErrUnavailable)
	}

	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.acct.RecordFailure()
		return nil, fmt.Errorf("%w: %w", provider.ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		c.acct.RecordFailure()
		return nil, fmt.Errorf("%w: read response: %w", provider.ErrProvider, err)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.acct.RecordFailure()
		return nil, fmt.Errorf("%w: decode response: %w", provider.ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.acct.RecordFailure()
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("%w: embeddings endpoint returned %d: %s", provider.ErrProvider, resp.StatusCode, msg)
	}
	if len(parsed.Data) == 0 {
		c.acct.RecordFailure()
		return nil, fmt.Errorf("%w: response carried no embedding data", provider.ErrProvider)
	}

	vec := parsed.Data[0].Embedding
	if c.dimension > 0 && len(vec) != c.dimension {
		c.acct.RecordFailure()
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", provider.ErrProvider, c.dimension, len(vec))
	}

	c.acct.RecordEmbedding(text, parsed.Usage.PromptTokens)
	log.Debug().
		Int("dimension", len(vec)).
		Int64("tokens", parsed.Usage.PromptTokens).
		Msg("Generated embedding")

	return models.Vector(vectormath.Normalize(vec)), nil
}
