package classify

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Terminal path labels. Observability only; never decision-making.
const (
	PathEmbeddingOnly   = "embedding_only"
	PathTieBreak        = "tie_break"
	PathNewBucket       = "new_bucket"
	PathLLMOnly         = "llm_only"
	PathLLMFallback     = "llm_fallback"
	PathPatternFallback = "pattern_fallback"
	PathDefaultBucket   = "default_bucket"
	PathEmergent        = "emergent"
)

// Metrics counts terminal classification paths. With no meter provider
// installed the counter is a no-op.
type Metrics struct {
	terminals metric.Int64Counter
}

// NewMetrics creates the classification metrics.
func NewMetrics() *Metrics {
	meter := otel.Meter("github.com/sortdeck/sortdeck/internal/classify")
	terminals, err := meter.Int64Counter("sortdeck.classification.terminals",
		metric.WithDescription("Terminal classification paths taken"))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create terminal path counter")
	}
	return &Metrics{terminals: terminals}
}

// RecordPath increments the counter for a terminal path.
func (m *Metrics) RecordPath(ctx context.Context, path string) {
	if m == nil || m.terminals == nil {
		return
	}
	m.terminals.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}
