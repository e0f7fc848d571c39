package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venturelab/internal/codec"
	"venturelab/internal/domain"
)

// execute runs the root command against a throwaway config
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "venturelab.yaml")
	cfgData := "database:\n  path: " + filepath.Join(dir, "test.db") + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfgData), 0644))

	// flag values persist between executions of the package-level commands
	templateStage, reportFormat, reportInput, serveAddr = "", "markdown", "", ""
	configPath, logLevel = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgFile}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTemplatesList(t *testing.T) {
	out, err := execute(t, "templates", "list", "--stage", "market")
	require.NoError(t, err)

	assert.Contains(t, out, "landing_page_smoke_test")
	assert.NotContains(t, out, "pricing_test")
}

func TestTemplatesExportAndValidate(t *testing.T) {
	pack := filepath.Join(t.TempDir(), "pack.yaml")
	_, err := execute(t, "templates", "export", pack)
	require.NoError(t, err)

	out, err := execute(t, "templates", "validate", pack)
	require.NoError(t, err)
	assert.Contains(t, out, "5 templates OK")
}

func TestReportFromDatabase(t *testing.T) {
	out, err := execute(t, "report", "pricing_test")
	require.NoError(t, err)
	assert.Contains(t, out, "# pricing_test report")
	assert.Contains(t, out, "| Experiments | 0 |")

	_, err = execute(t, "report", "focus_group")
	assert.ErrorIs(t, err, domain.ErrInvalidExperiment)
}

func TestReportFromInput(t *testing.T) {
	saved := filepath.Join(t.TempDir(), "report.json")
	f, err := os.Create(saved)
	require.NoError(t, err)
	require.NoError(t, codec.NewJSONCodec().Export(&domain.Report{
		ExperimentType:   domain.ExperimentTypeLandingPage,
		GeneratedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		TotalExperiments: 7,
	}, f))
	require.NoError(t, f.Close())

	out, err := execute(t, "report", "--input", saved, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "experiment_type: landing_page")
	assert.Contains(t, out, "total_experiments: 7")
}
