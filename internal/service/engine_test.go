package service

import (
	"context"
	"testing"

	"venturelab/internal/catalog"
	"venturelab/internal/collector"
	"venturelab/internal/domain"
	"venturelab/internal/repository"
	"venturelab/internal/repository/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineRequiresDependencies(t *testing.T) {
	_, err := NewEngine(Options{})
	assert.Error(t, err)
	_, err = NewEngine(Options{Catalog: catalog.Default()})
	assert.Error(t, err)
}

func TestEngineLifecycleWithPersistence(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	newEngine := func() *Engine {
		reg := collector.NewRegistry(nil)
		require.NoError(t, reg.Register(collector.NewSimulated(7), collector.Config{Enabled: true}))
		e, err := NewEngine(Options{Catalog: catalog.Default(), Collectors: reg, Store: repo})
		require.NoError(t, err)
		return e
	}

	e := newEngine()
	done, err := e.CreateExperiment(ctx, domain.ExperimentTypeLandingPage, domain.ValidationContext{Industry: "edtech"})
	require.NoError(t, err)
	ran, err := e.RunExperiment(ctx, done.ID, 0)
	require.NoError(t, err)
	assert.True(t, ran.Status.IsTerminal())
	require.NotNil(t, ran.Results)
	assert.NotEmpty(t, ran.Results.Learnings)
	assert.Contains(t, ran.Results.Metrics, collector.CompletionRateMetric)

	planned, err := e.CreateExperiment(ctx, domain.ExperimentTypePricingTest, domain.ValidationContext{})
	require.NoError(t, err)

	// simulate a crash mid-run
	_, err = e.store.Update(ctx, planned.ID, func(x *domain.Experiment) error {
		return x.Transition(domain.StatusInProgress, "")
	})
	require.NoError(t, err)

	report, err := e.Report(ctx, domain.ExperimentTypeLandingPage)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalExperiments)

	analysis, err := e.Analyze(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, done.ID, analysis.ExperimentID)

	restored := newEngine()
	require.NoError(t, restored.Restore(ctx))

	all := restored.ListExperiments(repository.ListOptions{})
	require.Len(t, all, 2)
	assert.Equal(t, done.ID, all[0].ID)
	require.NotNil(t, all[0].Results)
	assert.True(t, all[0].Results.Sealed)
	assert.Equal(t, "edtech", all[0].Context.Industry)

	interrupted, err := restored.GetExperiment(planned.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, interrupted.Status)
	assert.Equal(t, domain.ReasonInterrupted, interrupted.FailureReason)

	inProgress := restored.ListExperiments(repository.ListOptions{Status: domain.StatusInProgress})
	assert.Empty(t, inProgress)
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	fast := make(chan Event, 1)
	slow := make(chan Event)
	bus.Subscribe(fast)
	bus.Subscribe(slow)

	bus.Publish(Event{Type: EventReportGenerated})
	assert.Equal(t, EventReportGenerated, (<-fast).Type)

	bus.Unsubscribe(fast)
	bus.Publish(Event{Type: EventReportGenerated})
	assert.Empty(t, collectEvents(fast))

	var nilBus *EventBus
	assert.NotPanics(t, func() { nilBus.Publish(Event{Type: EventExperimentCreated}) })
}
