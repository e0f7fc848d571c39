package codec

import (
	"fmt"
	"io"
	"time"

	"venturelab/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the HTTP media type
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// yamlReport represents the YAML structure for a report
type yamlReport struct {
	ExperimentType    string          `yaml:"experiment_type"`
	GeneratedAt       time.Time       `yaml:"generated_at"`
	TotalExperiments  int             `yaml:"total_experiments"`
	SuccessRate       float64         `yaml:"success_rate"`
	SuccessRateCI95   [2]float64      `yaml:"success_rate_ci95,flow"`
	AverageConfidence float64         `yaml:"average_confidence"`
	EvidenceStrength  float64         `yaml:"evidence_strength"`
	Insights          []string        `yaml:"insights,omitempty"`
	Recommendations   []string        `yaml:"recommendations,omitempty"`
	Timeline          []yamlTimeEntry `yaml:"timeline,omitempty"`
}

type yamlTimeEntry struct {
	ExperimentID string    `yaml:"experiment_id"`
	Timestamp    time.Time `yaml:"timestamp"`
	Status       string    `yaml:"status"`
	Confidence   float64   `yaml:"confidence"`
}

// Parse reads a report from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Report, error) {
	var yr yamlReport
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yr); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if yr.ExperimentType == "" {
		return nil, fmt.Errorf("failed to parse YAML: missing experiment_type")
	}

	report := &domain.Report{
		ExperimentType:    domain.ExperimentType(yr.ExperimentType),
		GeneratedAt:       yr.GeneratedAt,
		TotalExperiments:  yr.TotalExperiments,
		SuccessRate:       yr.SuccessRate,
		SuccessRateCI95:   domain.Interval{Low: yr.SuccessRateCI95[0], High: yr.SuccessRateCI95[1]},
		AverageConfidence: yr.AverageConfidence,
		EvidenceStrength:  yr.EvidenceStrength,
		Insights:          nonNil(yr.Insights),
		Recommendations:   nonNil(yr.Recommendations),
		Timeline:          make([]domain.TimelineEntry, 0, len(yr.Timeline)),
	}
	for _, te := range yr.Timeline {
		report.Timeline = append(report.Timeline, domain.TimelineEntry{
			ExperimentID: te.ExperimentID,
			Timestamp:    te.Timestamp,
			Status:       domain.ResultStatus(te.Status),
			Confidence:   te.Confidence,
		})
	}

	return report, nil
}

// Export writes a report as YAML
func (c *YAMLCodec) Export(report *domain.Report, w io.Writer) error {
	yr := yamlReport{
		ExperimentType:    string(report.ExperimentType),
		GeneratedAt:       report.GeneratedAt,
		TotalExperiments:  report.TotalExperiments,
		SuccessRate:       report.SuccessRate,
		SuccessRateCI95:   [2]float64{report.SuccessRateCI95.Low, report.SuccessRateCI95.High},
		AverageConfidence: report.AverageConfidence,
		EvidenceStrength:  report.EvidenceStrength,
		Insights:          report.Insights,
		Recommendations:   report.Recommendations,
	}
	for _, te := range report.Timeline {
		yr.Timeline = append(yr.Timeline, yamlTimeEntry{
			ExperimentID: te.ExperimentID,
			Timestamp:    te.Timestamp,
			Status:       string(te.Status),
			Confidence:   te.Confidence,
		})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(yr); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
