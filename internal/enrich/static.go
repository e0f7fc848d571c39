// Package enrich supplies market and competitor context to the analyzer.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"venturelab/internal/domain"
)

// Static answers enrichment lookups from fixed tables, usually loaded
// from the enrichment section of the config file.
type Static struct {
	markets     []domain.MarketData
	competitors []domain.CompetitorData
}

// NewStatic copies the given tables into a lookup
func NewStatic(markets []domain.MarketData, competitors []domain.CompetitorData) *Static {
	s := &Static{
		markets:     make([]domain.MarketData, len(markets)),
		competitors: make([]domain.CompetitorData, len(competitors)),
	}
	copy(s.markets, markets)
	copy(s.competitors, competitors)
	return s
}

// MarketData returns the entry for the context's industry. An entry whose
// location matches wins over one without a location.
func (s *Static) MarketData(ctx context.Context, vctx domain.ValidationContext) (*domain.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEnrichmentFailure, err)
	}
	if vctx.Industry == "" {
		return nil, fmt.Errorf("%w: no industry in context", domain.ErrEnrichmentFailure)
	}

	var fallback *domain.MarketData
	for i := range s.markets {
		md := &s.markets[i]
		if !strings.EqualFold(md.Industry, vctx.Industry) {
			continue
		}
		if md.Location != "" && strings.EqualFold(md.Location, vctx.Location) {
			return cloneMarket(md), nil
		}
		if md.Location == "" && fallback == nil {
			fallback = md
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w: no market data for %q", domain.ErrEnrichmentFailure, vctx.Industry)
	}
	return cloneMarket(fallback), nil
}

// CompetitorData returns the competitor entry for the context's industry
func (s *Static) CompetitorData(ctx context.Context, vctx domain.ValidationContext) (*domain.CompetitorData, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEnrichmentFailure, err)
	}
	for i := range s.competitors {
		cd := &s.competitors[i]
		if vctx.Industry != "" && strings.EqualFold(cd.Industry, vctx.Industry) {
			out := *cd
			out.Competitors = append([]string(nil), cd.Competitors...)
			out.Features = append([]string(nil), cd.Features...)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: no competitor data for %q", domain.ErrEnrichmentFailure, vctx.Industry)
}

// Len reports the number of market and competitor entries
func (s *Static) Len() (markets, competitors int) {
	return len(s.markets), len(s.competitors)
}

func cloneMarket(md *domain.MarketData) *domain.MarketData {
	out := *md
	out.Trends = append([]string(nil), md.Trends...)
	return &out
}
