package domain

import (
	"errors"
	"testing"
)

func problemInterviewCriteria() []SuccessCriterion {
	return []SuccessCriterion{
		{Metric: "problem_confirmation_rate", Target: 80, Minimum: 60, Unit: "%"},
		{Metric: "active_solution_seeking", Target: 60, Minimum: 40, Unit: "%"},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		metrics map[string]float64
		want    ResultStatus
	}{
		{
			name:    "both criteria met",
			metrics: map[string]float64{"problem_confirmation_rate": 85, "active_solution_seeking": 65},
			want:    ResultSuccess,
		},
		{
			name:    "no criteria met",
			metrics: map[string]float64{"problem_confirmation_rate": 50, "active_solution_seeking": 20},
			want:    ResultFailure,
		},
		{
			name:    "half met",
			metrics: map[string]float64{"problem_confirmation_rate": 85, "active_solution_seeking": 20},
			want:    ResultInconclusive,
		},
		{
			name:    "exact target counts as met",
			metrics: map[string]float64{"problem_confirmation_rate": 80, "active_solution_seeking": 60},
			want:    ResultSuccess,
		},
		{
			name:    "missing metric is not met",
			metrics: map[string]float64{"problem_confirmation_rate": 90},
			want:    ResultInconclusive,
		},
		{
			name:    "empty metrics",
			metrics: nil,
			want:    ResultFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.metrics, problemInterviewCriteria())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyBoundaries(t *testing.T) {
	criteria := make([]SuccessCriterion, 10)
	for i := range criteria {
		criteria[i] = SuccessCriterion{Metric: string(rune('a' + i)), Target: 1}
	}

	metricsMeeting := func(n int) map[string]float64 {
		m := make(map[string]float64)
		for i := 0; i < n; i++ {
			m[criteria[i].Metric] = 1
		}
		return m
	}

	tests := []struct {
		met  int
		want ResultStatus
	}{
		{0, ResultFailure},
		{3, ResultFailure}, // 0.3 is inclusive
		{4, ResultInconclusive},
		{7, ResultInconclusive},
		{8, ResultSuccess}, // 0.8 is inclusive
		{10, ResultSuccess},
	}

	for _, tt := range tests {
		got, err := Classify(metricsMeeting(tt.met), criteria)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("%d/10 met: got %s, want %s", tt.met, got, tt.want)
		}
	}
}

func TestClassifyZeroCriteria(t *testing.T) {
	_, err := Classify(map[string]float64{"x": 1}, nil)
	if !errors.Is(err, ErrInvalidExperiment) {
		t.Fatalf("expected ErrInvalidExperiment, got %v", err)
	}
}
