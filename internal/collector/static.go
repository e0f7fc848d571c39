package collector

import (
	"context"

	"venturelab/internal/domain"
)

// StaticCollector returns the same observations for every experiment
type StaticCollector struct {
	ID         string
	Types      []domain.ExperimentType // empty means all types
	Collection Collection
	Err        error
}

func (s *StaticCollector) Name() string {
	if s.ID == "" {
		return "static"
	}
	return s.ID
}

func (s *StaticCollector) Supports(typ domain.ExperimentType) bool {
	if len(s.Types) == 0 {
		return true
	}
	for _, t := range s.Types {
		if t == typ {
			return true
		}
	}
	return false
}

func (s *StaticCollector) Collect(ctx context.Context, _ *domain.Experiment) (*Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}

	out := &Collection{
		Metrics:   make(map[string]float64, len(s.Collection.Metrics)),
		Evidence:  append([]domain.Evidence(nil), s.Collection.Evidence...),
		Insights:  append([]string(nil), s.Collection.Insights...),
		Learnings: append([]string(nil), s.Collection.Learnings...),
	}
	for k, v := range s.Collection.Metrics {
		out.Metrics[k] = v
	}
	return out, nil
}
