// Package codec renders aggregated reports for download and reads saved ones back.
package codec

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"venturelab/internal/domain"
)

// Importer interface for reading reports saved in various formats
type Importer interface {
	Parse(r io.Reader) (*domain.Report, error)
	Format() string
}

// Exporter interface for writing reports to various formats
type Exporter interface {
	Export(report *domain.Report, w io.Writer) error
	Format() string
	ContentType() string
}

var exporters = map[string]Exporter{
	"json":     NewJSONCodec(),
	"yaml":     NewYAMLCodec(),
	"markdown": NewMarkdownCodec(),
}

var aliases = map[string]string{
	"":    "json",
	"yml": "yaml",
	"md":  "markdown",
}

// ExporterFor returns the exporter registered for a format name or alias
func ExporterFor(format string) (Exporter, error) {
	name := strings.ToLower(format)
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	exp, ok := exporters[name]
	if !ok {
		return nil, fmt.Errorf("unsupported report format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
	return exp, nil
}

// ImporterFor returns the importer for a format name or alias. Markdown is export-only.
func ImporterFor(format string) (Importer, error) {
	exp, err := ExporterFor(format)
	if err != nil {
		return nil, err
	}
	imp, ok := exp.(Importer)
	if !ok {
		return nil, fmt.Errorf("report format %q cannot be imported", exp.Format())
	}
	return imp, nil
}

// Formats lists the supported export format names
func Formats() []string {
	names := make([]string, 0, len(exporters))
	for name := range exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
