package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venturelab/internal/domain"
)

func testStatic() *Static {
	return NewStatic(
		[]domain.MarketData{
			{Industry: "Fintech", MarketSize: "$300B", GrowthRate: 11, Trends: []string{"embedded finance"}},
			{Industry: "fintech", Location: "Berlin", MarketSize: "$4B", GrowthRate: 14},
			{Industry: "healthcare", Location: "Austin"},
		},
		[]domain.CompetitorData{
			{Industry: "fintech", Competitors: []string{"Ledgerly", "PayPath"}, Features: []string{"instant payouts"}},
		},
	)
}

func TestMarketDataPrefersLocation(t *testing.T) {
	s := testStatic()

	md, err := s.MarketData(context.Background(), domain.ValidationContext{Industry: "FINTECH", Location: "berlin"})
	require.NoError(t, err)
	assert.Equal(t, "$4B", md.MarketSize)

	md, err = s.MarketData(context.Background(), domain.ValidationContext{Industry: "fintech", Location: "Lisbon"})
	require.NoError(t, err)
	assert.Equal(t, "$300B", md.MarketSize)
	assert.Equal(t, []string{"embedded finance"}, md.Trends)
}

func TestMarketDataMisses(t *testing.T) {
	s := testStatic()

	tests := []struct {
		name string
		vctx domain.ValidationContext
	}{
		{"no industry", domain.ValidationContext{}},
		{"unknown industry", domain.ValidationContext{Industry: "mining"}},
		{"location only entry", domain.ValidationContext{Industry: "healthcare", Location: "Boston"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.MarketData(context.Background(), tt.vctx)
			assert.ErrorIs(t, err, domain.ErrEnrichmentFailure)
		})
	}
}

func TestMarketDataReturnsCopy(t *testing.T) {
	s := testStatic()
	vctx := domain.ValidationContext{Industry: "fintech"}

	md, err := s.MarketData(context.Background(), vctx)
	require.NoError(t, err)
	md.Trends[0] = "mutated"

	again, err := s.MarketData(context.Background(), vctx)
	require.NoError(t, err)
	assert.Equal(t, "embedded finance", again.Trends[0])
}

func TestCompetitorData(t *testing.T) {
	s := testStatic()

	cd, err := s.CompetitorData(context.Background(), domain.ValidationContext{Industry: "Fintech"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ledgerly", "PayPath"}, cd.Competitors)

	_, err = s.CompetitorData(context.Background(), domain.ValidationContext{Industry: "healthcare"})
	assert.ErrorIs(t, err, domain.ErrEnrichmentFailure)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testStatic().MarketData(ctx, domain.ValidationContext{Industry: "fintech"})
	assert.ErrorIs(t, err, domain.ErrEnrichmentFailure)
	assert.ErrorIs(t, err, context.Canceled)

	m, c := testStatic().Len()
	assert.Equal(t, 3, m)
	assert.Equal(t, 1, c)
}
