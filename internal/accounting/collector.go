// Package accounting tracks provider usage and accumulated cost.
//
// The collector is injected into the provider adapters instead of living in
// package-level state so parallel tests do not cross-contaminate. It is
// diagnostic only and never gates behavior.
package accounting

import (
	"math"
	"sync/atomic"

	"github.com/tiktoken-go/tokenizer"
)

// Prices holds per-million-token prices in USD.
type Prices struct {
	EmbeddingUSDPerMTokens float64
	InputUSDPerMTokens     float64
	OutputUSDPerMTokens    float64
}

// Collector accumulates usage counters across provider calls.
type Collector struct {
	prices Prices
	codec  tokenizer.Codec

	embeddingCalls  atomic.Int64
	embeddingTokens atomic.Int64

	completionCalls  atomic.Int64
	inputTokens      atomic.Int64
	outputTokens     atomic.Int64
	estimatedCalls   atomic.Int64
	costMicroUSD     atomic.Int64
	providerFailures atomic.Int64
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	EmbeddingCalls   int64   `json:"embedding_calls"`
	EmbeddingTokens  int64   `json:"embedding_tokens"`
	CompletionCalls  int64   `json:"completion_calls"`
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	EstimatedCalls   int64   `json:"estimated_calls"`
	ProviderFailures int64   `json:"provider_failures"`
	CostUSD          float64 `json:"cost_usd"`
}

// NewCollector creates a collector with the given prices. The tokenizer is
// used only to estimate token counts when a provider omits usage data; if it
// fails to load, estimation falls back to a bytes/4 heuristic.
func NewCollector(prices Prices) *Collector {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		codec = nil
	}
	return &Collector{prices: prices, codec: codec}
}

// RecordEmbedding records one embedding call. If tokens is zero, the token
// count is estimated from text.
func (c *Collector) RecordEmbedding(text string, tokens int64) {
	if tokens <= 0 {
		tokens = c.EstimateTokens(text)
		c.estimatedCalls.Add(1)
	}
	c.embeddingCalls.Add(1)
	c.embeddingTokens.Add(tokens)
	c.addCost(float64(tokens) * c.prices.EmbeddingUSDPerMTokens)
}

// RecordCompletion records one completion call. Zero token counts are
// estimated from the corresponding text.
func (c *Collector) RecordCompletion(prompt, response string, inputTokens, outputTokens int64) {
	if inputTokens <= 0 {
		inputTokens = c.EstimateTokens(prompt)
		c.estimatedCalls.Add(1)
	}
	if outputTokens <= 0 {
		outputTokens = c.EstimateTokens(response)
	}
	c.completionCalls.Add(1)
	c.inputTokens.Add(inputTokens)
	c.outputTokens.Add(outputTokens)
	c.addCost(float64(inputTokens)*c.prices.InputUSDPerMTokens +
		float64(outputTokens)*c.prices.OutputUSDPerMTokens)
}

// RecordFailure records a provider transport or parse failure.
func (c *Collector) RecordFailure() {
	c.providerFailures.Add(1)
}

// EstimateTokens returns a local token count estimate for text.
func (c *Collector) EstimateTokens(text string) int64 {
	if text == "" {
		return 0
	}
	if c.codec != nil {
		if ids, _, err := c.codec.Encode(text); err == nil {
			return int64(len(ids))
		}
	}
	return int64(math.Ceil(float64(len(text)) / 4.0))
}

// Snapshot returns the current counter values.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		EmbeddingCalls:   c.embeddingCalls.Load(),
		EmbeddingTokens:  c.embeddingTokens.Load(),
		CompletionCalls:  c.completionCalls.Load(),
		InputTokens:      c.inputTokens.Load(),
		OutputTokens:     c.outputTokens.Load(),
		EstimatedCalls:   c.estimatedCalls.Load(),
		ProviderFailures: c.providerFailures.Load(),
		CostUSD:          float64(c.costMicroUSD.Load()) / 1e6,
	}
}

// addCost converts a price-per-million-tokens product into micro-USD.
// usdTimesMTokens is tokens * USDPerMTokens, i.e. USD * 1e6.
func (c *Collector) addCost(usdTimesMTokens float64) {
	c.costMicroUSD.Add(int64(math.Round(usdTimesMTokens)))
}
