package catalog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"venturelab/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestDefaultTemplates(t *testing.T) {
	c := Default()

	t.Run("covers every experiment type", func(t *testing.T) {
		for _, typ := range domain.ExperimentTypes() {
			tmpl, err := c.ForType(typ)
			require.NoError(t, err, "type %s", typ)
			assert.Equal(t, typ, tmpl.Type)
		}
	})

	t.Run("problem interview criteria", func(t *testing.T) {
		tmpl, err := c.Get("problem_interview")
		require.NoError(t, err)
		assert.Equal(t, domain.StageProblem, tmpl.Stage)
		require.Len(t, tmpl.SuccessCriteria, 2)
		assert.Equal(t, domain.SuccessCriterion{Metric: "problem_confirmation_rate", Target: 80, Minimum: 60, Unit: "%"}, tmpl.SuccessCriteria[0])
		assert.Equal(t, domain.SuccessCriterion{Metric: "active_solution_seeking", Target: 60, Minimum: 40, Unit: "%"}, tmpl.SuccessCriteria[1])
	})

	t.Run("every stage has at least one template", func(t *testing.T) {
		for _, stage := range []domain.ValidationStage{domain.StageProblem, domain.StageSolution, domain.StageMarket, domain.StageBusinessModel} {
			assert.NotEmpty(t, c.ForStage(stage), "stage %s", stage)
		}
	})
}

func TestCatalogLookup(t *testing.T) {
	c := Default()

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := c.Get("nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("returned templates are copies", func(t *testing.T) {
		tmpl, err := c.Get("problem_interview")
		require.NoError(t, err)
		tmpl.SuccessCriteria[0].Target = 1
		tmpl.Name = "mutated"

		again, err := c.Get("problem_interview")
		require.NoError(t, err)
		assert.Equal(t, 80.0, again.SuccessCriteria[0].Target)
		assert.Equal(t, "Problem Interview", again.Name)
	})

	t.Run("for stage preserves insertion order", func(t *testing.T) {
		market := c.ForStage(domain.StageMarket)
		require.Len(t, market, 2)
		assert.Equal(t, "landing_page", market[0].ID)
		assert.Equal(t, "landing_page_smoke_test", market[1].ID)
	})

	t.Run("for type returns first match", func(t *testing.T) {
		tmpl, err := c.ForType(domain.ExperimentTypeLandingPage)
		require.NoError(t, err)
		assert.Equal(t, "landing_page", tmpl.ID)
	})
}

func TestCatalogReplace(t *testing.T) {
	c := Default()
	before := c.Len()

	t.Run("rejects duplicates without changing contents", func(t *testing.T) {
		tmpl, _ := c.Get("pricing_test")
		err := c.Replace([]domain.ExperimentTemplate{tmpl, tmpl})
		require.Error(t, err)
		assert.Equal(t, before, c.Len())
	})

	t.Run("rejects templates without criteria", func(t *testing.T) {
		tmpl, _ := c.Get("pricing_test")
		tmpl.SuccessCriteria = nil
		require.Error(t, c.Replace([]domain.ExperimentTemplate{tmpl}))
		assert.Equal(t, before, c.Len())
	})
}

func TestCustomize(t *testing.T) {
	c := Default()
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	days := 7
	custom, err := c.Customize("problem_interview", Overrides{Name: "Quick interviews", DurationDays: &days})
	require.NoError(t, err)

	assert.Equal(t, "problem_interview_custom_1700000000000", custom.ID)
	assert.Equal(t, "Quick interviews", custom.Name)
	assert.Equal(t, 7, custom.DurationDays)
	assert.Len(t, custom.SuccessCriteria, 2)

	stored, err := c.Get(custom.ID)
	require.NoError(t, err)
	assert.Equal(t, custom, stored)

	base, _ := c.Get("problem_interview")
	assert.Equal(t, 14, base.DurationDays)

	t.Run("same millisecond gets a distinct id", func(t *testing.T) {
		second, err := c.Customize("problem_interview", Overrides{})
		require.NoError(t, err)
		assert.NotEqual(t, custom.ID, second.ID)
		assert.True(t, strings.HasPrefix(second.ID, custom.ID))
	})

	t.Run("unknown base", func(t *testing.T) {
		_, err := c.Customize("missing", Overrides{})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("unknown risk level", func(t *testing.T) {
		n := c.Len()
		_, err := c.Customize("problem_interview", Overrides{RiskLevel: "extreme"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown risk level")
		assert.Equal(t, n, c.Len())
	})
}

func TestCustomizedTemplatesSurviveReplace(t *testing.T) {
	c := Default()
	custom, err := c.Customize("landing_page", Overrides{Name: "Waitlist page"})
	require.NoError(t, err)

	pack, err := ParseYAML(strings.NewReader(packYAML))
	require.NoError(t, err)
	require.NoError(t, c.Replace(pack))

	_, err = c.Get("landing_page")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	kept, err := c.Get(custom.ID)
	require.NoError(t, err)
	assert.Equal(t, "Waitlist page", kept.Name)

	ids := make([]string, 0, c.Len())
	for _, tmpl := range c.List() {
		ids = append(ids, tmpl.ID)
	}
	assert.Equal(t, []string{"b2b_interview", custom.ID}, ids)

	t.Run("a reloaded template with the same id wins", func(t *testing.T) {
		override := pack[0]
		override.ID = custom.ID
		override.Name = "From disk"
		require.NoError(t, c.Replace([]domain.ExperimentTemplate{override}))
		got, err := c.Get(custom.ID)
		require.NoError(t, err)
		assert.Equal(t, "From disk", got.Name)

		require.NoError(t, c.Replace(pack))
		_, err = c.Get(custom.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

const packYAML = `version: "1"
templates:
  - id: b2b_interview
    name: B2B Interview
    stage: problem
    type: problem_interview
    hypothesis_template: "[segment] struggle with [problem]"
    success_criteria:
      - metric: problem_confirmation_rate
        target: 70
        minimum: 50
        unit: "%"
    duration_days: 10
    cost: 300
    risk_level: low
`

func TestLoadYAML(t *testing.T) {
	c := Default()
	require.NoError(t, c.LoadYAML(strings.NewReader(packYAML)))
	assert.Equal(t, 1, c.Len())

	tmpl, err := c.Get("b2b_interview")
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentTypeProblemInterview, tmpl.Type)
	assert.Equal(t, 70.0, tmpl.SuccessCriteria[0].Target)

	t.Run("unknown fields are rejected", func(t *testing.T) {
		err := c.LoadYAML(strings.NewReader("templates:\n  - id: x\n    colour: red\n"))
		require.Error(t, err)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("export round trips", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, c.ExportYAML(&buf))
		parsed, err := ParseYAML(&buf)
		require.NoError(t, err)
		assert.Equal(t, c.List(), parsed)
	})
}

func TestWatcherReloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates: []\n"), 0o644))

	c := Default()
	reloaded := make(chan error, 4)
	w := NewWatcher(c, path, nil).WithDebounce(20 * time.Millisecond).OnReload(func(err error) {
		reloaded <- err
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(packYAML), 0o644))

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("catalog was not reloaded")
	}

	_, err := c.Get("b2b_interview")
	assert.NoError(t, err)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	// let a pending debounce timer drain
	time.Sleep(50 * time.Millisecond)
}
