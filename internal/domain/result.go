package domain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ResultStatus is the classified outcome of an experiment
type ResultStatus string

const (
	ResultSuccess      ResultStatus = "success"
	ResultFailure      ResultStatus = "failure"
	ResultInconclusive ResultStatus = "inconclusive"
)

// EvidenceType distinguishes observations from measurements
type EvidenceType string

const (
	EvidenceQualitative  EvidenceType = "qualitative"
	EvidenceQuantitative EvidenceType = "quantitative"
)

// Evidence is a single observation supporting a result's confidence
type Evidence struct {
	ID          string       `json:"id"`
	Type        EvidenceType `json:"type" validate:"required,oneof=qualitative quantitative"`
	Source      string       `json:"source" validate:"required"`
	Value       string       `json:"value"`
	Reliability float64      `json:"reliability"` // 0.0-1.0
	CollectedAt time.Time    `json:"collected_at"`
}

// NewEvidence creates evidence with a clamped reliability and a content ID
func NewEvidence(typ EvidenceType, source, value string, reliability float64) Evidence {
	e := Evidence{
		Type:        typ,
		Source:      source,
		Value:       value,
		Reliability: Clamp01(reliability),
		CollectedAt: time.Now(),
	}
	e.ID = e.generateID()
	return e
}

// Normalize clamps reliability and fills in ID and timestamp when missing
func (e Evidence) Normalize() Evidence {
	e.Reliability = Clamp01(e.Reliability)
	if e.CollectedAt.IsZero() {
		e.CollectedAt = time.Now()
	}
	if e.ID == "" {
		e.ID = e.generateID()
	}
	return e
}

func (e *Evidence) generateID() string {
	data := fmt.Sprintf("%s:%s:%s:%d", e.Type, e.Source, e.Value, e.CollectedAt.UnixNano())
	sum := blake2b.Sum256([]byte(data))
	return hex.EncodeToString(sum[:8])
}

// ExperimentResult is the outcome snapshot of an experiment
type ExperimentResult struct {
	ExperimentID     string             `json:"experiment_id"`
	ExperimentType   ExperimentType     `json:"experiment_type"`
	Timestamp        time.Time          `json:"timestamp"`
	Metrics          map[string]float64 `json:"-"`
	Insights         []string           `json:"insights"`
	Learnings        []string           `json:"learnings,omitempty"`
	Status           ResultStatus       `json:"status"`
	Evidence         []Evidence         `json:"evidence"`
	Confidence       float64            `json:"confidence"`
	EvidenceStrength float64            `json:"evidence_strength"`

	// Version increases each time a sealed result is superseded
	Version      int        `json:"version"`
	Sealed       bool       `json:"sealed"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
}

// NewExperimentResult creates an empty, inconclusive result for an experiment
func NewExperimentResult(experimentID string, typ ExperimentType) *ExperimentResult {
	return &ExperimentResult{
		ExperimentID:   experimentID,
		ExperimentType: typ,
		Timestamp:      time.Now(),
		Metrics:        make(map[string]float64),
		Insights:       []string{},
		Status:         ResultInconclusive,
		Evidence:       []Evidence{},
		Version:        1,
	}
}

// SetMetric upserts a metric value; NaN and infinities are rejected
func (r *ExperimentResult) SetMetric(name string, value float64) error {
	if name == "" {
		return InvalidExperimentf("metric name required")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return InvalidExperimentf("metric %s has non-finite value", name)
	}
	if r.Metrics == nil {
		r.Metrics = make(map[string]float64)
	}
	r.Metrics[name] = value
	return nil
}

// AddInsight appends text unless an identical insight is already present.
// Returns true when the insight was added.
func (r *ExperimentResult) AddInsight(text string) bool {
	for _, existing := range r.Insights {
		if existing == text {
			return false
		}
	}
	r.Insights = append(r.Insights, text)
	return true
}

// AverageReliability returns the mean evidence reliability, 0 with no evidence
func (r *ExperimentResult) AverageReliability() float64 {
	if len(r.Evidence) == 0 {
		return 0
	}
	var sum float64
	for _, e := range r.Evidence {
		sum += e.Reliability
	}
	return sum / float64(len(r.Evidence))
}

// QuantitativeShare returns the fraction of evidence that is quantitative
func (r *ExperimentResult) QuantitativeShare() float64 {
	if len(r.Evidence) == 0 {
		return 0
	}
	n := 0
	for _, e := range r.Evidence {
		if e.Type == EvidenceQuantitative {
			n++
		}
	}
	return float64(n) / float64(len(r.Evidence))
}

// MetricNames returns metric keys in sorted order
func (r *ExperimentResult) MetricNames() []string {
	names := make([]string, 0, len(r.Metrics))
	for name := range r.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy
func (r *ExperimentResult) Clone() *ExperimentResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Metrics = make(map[string]float64, len(r.Metrics))
	for k, v := range r.Metrics {
		c.Metrics[k] = v
	}
	c.Insights = append([]string{}, r.Insights...)
	c.Learnings = append([]string(nil), r.Learnings...)
	c.Evidence = append([]Evidence{}, r.Evidence...)
	if r.SupersededAt != nil {
		t := *r.SupersededAt
		c.SupersededAt = &t
	}
	return &c
}

// MetricValue is the key/value pair form used to serialize metrics
type MetricValue struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// MetricList returns metrics as name-sorted key/value pairs
func (r *ExperimentResult) MetricList() []MetricValue {
	out := make([]MetricValue, 0, len(r.Metrics))
	for _, name := range r.MetricNames() {
		out = append(out, MetricValue{Name: name, Value: r.Metrics[name]})
	}
	return out
}

type resultJSON ExperimentResult

type resultEnvelope struct {
	*resultJSON
	Metrics []MetricValue `json:"metrics"`
}

// MarshalJSON encodes metrics as an ordered list of {name, value} pairs
func (r ExperimentResult) MarshalJSON() ([]byte, error) {
	rr := resultJSON(r)
	return json.Marshal(resultEnvelope{resultJSON: &rr, Metrics: r.MetricList()})
}

// UnmarshalJSON decodes the key/value pair form back into the metrics map
func (r *ExperimentResult) UnmarshalJSON(data []byte) error {
	env := resultEnvelope{resultJSON: (*resultJSON)(r)}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	r.Metrics = make(map[string]float64, len(env.Metrics))
	for _, m := range env.Metrics {
		if _, dup := r.Metrics[m.Name]; dup {
			return InvalidExperimentf("duplicate metric %s", m.Name)
		}
		r.Metrics[m.Name] = m.Value
	}
	return nil
}

// Clamp01 bounds v to [0,1]; NaN maps to 0
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
