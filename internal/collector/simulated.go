package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"venturelab/internal/domain"
)

// CompletionRateMetric is the share of participants, in percent, who
// finished the experiment session
const CompletionRateMetric = "completion_rate"

// SimulatedCollector fabricates plausible observations for each criterion.
// Metric values fall between Spread below and Spread above the target.
type SimulatedCollector struct {
	Seed   int64
	Spread float64
	// Delay simulates field collection time
	Delay time.Duration
}

// NewSimulated creates a simulated collector with the default spread
func NewSimulated(seed int64) *SimulatedCollector {
	return &SimulatedCollector{Seed: seed, Spread: 0.4}
}

func (s *SimulatedCollector) Name() string { return "simulated" }

func (s *SimulatedCollector) Supports(domain.ExperimentType) bool { return true }

func (s *SimulatedCollector) rng(experimentID string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(experimentID))
	return rand.New(rand.NewSource(s.Seed ^ int64(h.Sum64())))
}

// Collect waits for Delay, then generates one metric and one quantitative
// evidence item per success criterion plus a qualitative summary. The
// session completion rate is reported as the completion_rate metric.
func (s *SimulatedCollector) Collect(ctx context.Context, exp *domain.Experiment) (*Collection, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := s.rng(exp.ID)
	col := &Collection{Metrics: make(map[string]float64, len(exp.SuccessCriteria))}

	for _, c := range exp.SuccessCriteria {
		factor := 1 + s.Spread*(2*r.Float64()-1)
		value := c.Target * factor
		col.Metrics[c.Metric] = value
		col.Evidence = append(col.Evidence, domain.NewEvidence(
			domain.EvidenceQuantitative,
			"simulation",
			fmt.Sprintf("%s=%.2f%s", c.Metric, value, c.Unit),
			0.6+0.35*r.Float64(),
		))
	}

	sample := 10 + r.Intn(20)
	col.Evidence = append(col.Evidence, domain.NewEvidence(
		domain.EvidenceQualitative,
		"simulation",
		fmt.Sprintf("%d simulated participants", sample),
		0.5+0.3*r.Float64(),
	))
	col.Insights = append(col.Insights, fmt.Sprintf("Simulated %d participants for %s", sample, exp.Name))

	completed := sample - r.Intn(sample/4+1)
	col.Metrics[CompletionRateMetric] = 100 * float64(completed) / float64(sample)
	col.Learnings = append(col.Learnings, fmt.Sprintf("%d of %d participants completed the session", completed, sample))
	return col, nil
}
