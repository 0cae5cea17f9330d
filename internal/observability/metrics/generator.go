package metrics

import (
	"context"
	"time"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
	"github.com/kirillkom/broker-report-digest/internal/core/ports"
)

type instrumentedGenerator struct {
	next    ports.ContentGenerator
	metrics *DigestMetrics
}

// InstrumentGenerator records duration and outcome kind of every generation call.
func InstrumentGenerator(next ports.ContentGenerator, metrics *DigestMetrics) ports.ContentGenerator {
	if metrics == nil {
		return next
	}
	return &instrumentedGenerator{next: next, metrics: metrics}
}

func (g *instrumentedGenerator) GenerateContent(ctx context.Context, apiKey string, model domain.ModelDescriptor, prompt string) (string, error) {
	start := time.Now()
	g.metrics.StartGeneration()
	text, err := g.next.GenerateContent(ctx, apiKey, model, prompt)
	g.metrics.FinishGeneration(model.ID(), string(domain.ClassifyFailure(err)), time.Since(start))
	return text, err
}
