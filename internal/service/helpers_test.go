package service

import (
	"context"
	"testing"
	"time"

	"venturelab/internal/catalog"
	"venturelab/internal/collector"
	"venturelab/internal/domain"

	"github.com/stretchr/testify/require"
)

// newTestEngine builds an engine whose only collector is c
func newTestEngine(t *testing.T, c collector.Collector) *Engine {
	t.Helper()
	reg := collector.NewRegistry(nil)
	require.NoError(t, reg.Register(c, collector.Config{Enabled: true}))

	e, err := NewEngine(Options{
		Catalog:        catalog.Default(),
		Collectors:     reg,
		DefaultTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return e
}

func staticMetrics(metrics map[string]float64) *collector.StaticCollector {
	return &collector.StaticCollector{Collection: collector.Collection{
		Metrics: metrics,
		Evidence: []domain.Evidence{
			domain.NewEvidence(domain.EvidenceQuantitative, "interviews", "tally", 0.9),
			domain.NewEvidence(domain.EvidenceQualitative, "interviews", "notes", 0.7),
		},
	}}
}

// blockingCollector blocks until its context is done
type blockingCollector struct {
	started chan struct{}
}

func newBlockingCollector() *blockingCollector {
	return &blockingCollector{started: make(chan struct{}, 1)}
}

func (b *blockingCollector) Name() string                        { return "blocking" }
func (b *blockingCollector) Supports(domain.ExperimentType) bool { return true }

func (b *blockingCollector) Collect(ctx context.Context, _ *domain.Experiment) (*collector.Collection, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// collectEvents drains whatever the bus delivered so far
func collectEvents(ch <-chan Event) []EventType {
	var out []EventType
	for {
		select {
		case ev := <-ch:
			out = append(out, ev.Type)
		default:
			return out
		}
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}
