package domain

// MarketData describes the market an experiment's venture operates in
type MarketData struct {
	Industry   string   `json:"industry" yaml:"industry"`
	Location   string   `json:"location,omitempty" yaml:"location,omitempty"`
	MarketSize string   `json:"market_size,omitempty" yaml:"market_size,omitempty"`
	GrowthRate float64  `json:"growth_rate,omitempty" yaml:"growth_rate,omitempty"` // percent per year
	Trends     []string `json:"trends,omitempty" yaml:"trends,omitempty"`
}

// CompetitorData lists known competitors and the features they ship
type CompetitorData struct {
	Industry    string   `json:"industry" yaml:"industry"`
	Competitors []string `json:"competitors,omitempty" yaml:"competitors,omitempty"`
	Features    []string `json:"features,omitempty" yaml:"features,omitempty"`
}
