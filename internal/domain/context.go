package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ContextMetrics are 0-1 scores describing the venture being validated
type ContextMetrics struct {
	IdeaStrength         float64 `json:"idea_strength" yaml:"idea_strength" validate:"gte=0,lte=1"`
	MarketFit            float64 `json:"market_fit" yaml:"market_fit" validate:"gte=0,lte=1"`
	ExecutionCapability  float64 `json:"execution_capability" yaml:"execution_capability" validate:"gte=0,lte=1"`
	CompetitiveAdvantage float64 `json:"competitive_advantage" yaml:"competitive_advantage" validate:"gte=0,lte=1"`
	FinancialViability   float64 `json:"financial_viability" yaml:"financial_viability" validate:"gte=0,lte=1"`
}

// ValidationContext is the business context supplied by the orchestration layer
type ValidationContext struct {
	Industry       string         `json:"industry,omitempty" yaml:"industry,omitempty" validate:"max=200"`
	Location       string         `json:"location,omitempty" yaml:"location,omitempty" validate:"max=200"`
	InvestmentType string         `json:"investment_type,omitempty" yaml:"investment_type,omitempty" validate:"max=100"`
	Stage          string         `json:"stage,omitempty" yaml:"stage,omitempty" validate:"max=100"`
	Problem        string         `json:"problem,omitempty" yaml:"problem,omitempty" validate:"max=2000"`
	Solution       string         `json:"solution,omitempty" yaml:"solution,omitempty" validate:"max=2000"`
	TargetSegment  string         `json:"target_segment,omitempty" yaml:"target_segment,omitempty" validate:"max=500"`
	Metrics        ContextMetrics `json:"metrics" yaml:"metrics"`
}

var contextValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field bounds, reporting failures as ErrInvalidExperiment
func (c ValidationContext) Validate() error {
	if err := contextValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return InvalidExperimentf("invalid validation context: %s", strings.Join(fields, ", "))
		}
		return InvalidExperimentf("invalid validation context: %v", err)
	}
	return nil
}
