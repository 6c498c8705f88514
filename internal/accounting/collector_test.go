package accounting

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrices() Prices {
	return Prices{
		EmbeddingUSDPerMTokens: 0.02,
		InputUSDPerMTokens:     3.0,
		OutputUSDPerMTokens:    15.0,
	}
}

func TestRecordEmbedding(t *testing.T) {
	c := NewCollector(testPrices())

	c.RecordEmbedding("some idea text", 1000)
	c.RecordEmbedding("more text", 500)

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.EmbeddingCalls)
	assert.Equal(t, int64(1500), snap.EmbeddingTokens)
	// 1500 tokens at $0.02/MTok.
	assert.InDelta(t, 0.00003, snap.CostUSD, 1e-9)
}

func TestRecordCompletion(t *testing.T) {
	c := NewCollector(testPrices())

	c.RecordCompletion("prompt", "response", 1_000_000, 100_000)

	snap := c.Snapshot()
	assert.Equal(t, int64(1), snap.CompletionCalls)
	assert.Equal(t, int64(1_000_000), snap.InputTokens)
	assert.Equal(t, int64(100_000), snap.OutputTokens)
	// 1M in at $3 + 100k out at $15/MTok = $4.50.
	assert.InDelta(t, 4.5, snap.CostUSD, 1e-6)
	assert.Equal(t, int64(0), snap.EstimatedCalls)
}

func TestZeroUsageIsEstimated(t *testing.T) {
	c := NewCollector(testPrices())

	c.RecordCompletion("a reasonably sized prompt for token estimation", "short reply", 0, 0)

	snap := c.Snapshot()
	assert.Equal(t, int64(1), snap.EstimatedCalls)
	assert.Greater(t, snap.InputTokens, int64(0))
	assert.Greater(t, snap.OutputTokens, int64(0))
}

func TestEstimateTokensEmpty(t *testing.T) {
	c := NewCollector(testPrices())
	assert.Equal(t, int64(0), c.EstimateTokens(""))
}

func TestConcurrentRecording(t *testing.T) {
	c := NewCollector(testPrices())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordEmbedding("text", 10)
			c.RecordFailure()
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	require.Equal(t, int64(50), snap.EmbeddingCalls)
	require.Equal(t, int64(500), snap.EmbeddingTokens)
	require.Equal(t, int64(50), snap.ProviderFailures)
}
