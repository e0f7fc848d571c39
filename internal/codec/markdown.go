package codec

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"venturelab/internal/domain"
)

// MarkdownCodec renders reports as human-readable Markdown. Export only.
type MarkdownCodec struct{}

// NewMarkdownCodec creates a new Markdown codec
func NewMarkdownCodec() *MarkdownCodec {
	return &MarkdownCodec{}
}

// Format returns the codec format identifier
func (c *MarkdownCodec) Format() string {
	return "markdown"
}

// ContentType returns the HTTP media type
func (c *MarkdownCodec) ContentType() string {
	return "text/markdown; charset=utf-8"
}

// Export writes the report as a Markdown document
func (c *MarkdownCodec) Export(report *domain.Report, w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s report\n\n", report.ExperimentType)
	fmt.Fprintf(bw, "Generated %s\n\n", report.GeneratedAt.UTC().Format(time.RFC3339))

	bw.WriteString("| Measure | Value |\n|---|---|\n")
	fmt.Fprintf(bw, "| Experiments | %d |\n", report.TotalExperiments)
	fmt.Fprintf(bw, "| Success rate | %s (95%% CI %s to %s) |\n",
		percent(report.SuccessRate), percent(report.SuccessRateCI95.Low), percent(report.SuccessRateCI95.High))
	fmt.Fprintf(bw, "| Average confidence | %.2f |\n", report.AverageConfidence)
	fmt.Fprintf(bw, "| Evidence strength | %.2f |\n", report.EvidenceStrength)

	writeList(bw, "Insights", report.Insights)
	writeList(bw, "Recommendations", report.Recommendations)

	if len(report.Timeline) > 0 {
		bw.WriteString("\n## Timeline\n\n| When | Experiment | Status | Confidence |\n|---|---|---|---|\n")
		for _, te := range report.Timeline {
			fmt.Fprintf(bw, "| %s | %s | %s | %.2f |\n",
				te.Timestamp.UTC().Format(time.RFC3339), te.ExperimentID, te.Status, te.Confidence)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	return nil
}

func writeList(bw *bufio.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(bw, "\n## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(bw, "- %s\n", item)
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
