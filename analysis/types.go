// Package analysis defines the analysis context handed to AI providers and
// the normalizer that turns their free-text answers into exactly three
// structured, roster-safe strategies.
package analysis

import (
	"time"
)

// StrategyName identifies one of the three canonical strategies.
type StrategyName string

const (
	SafeFloor   StrategyName = "SafeFloor"
	HighCeiling StrategyName = "HighCeiling"
	Balanced    StrategyName = "Balanced"
)

// StrategyOrder is the fixed output order of a Result's strategies,
// independent of the order the provider emitted them.
var StrategyOrder = []StrategyName{SafeFloor, HighCeiling, Balanced}

// Risk and confidence bounds; out-of-range provider values are clamped, not
// rejected.
const (
	MinRisk       = 1
	MaxRisk       = 10
	MinConfidence = 0
	MaxConfidence = 100
)

// LineupSlot is one starting position filled by an owned player.
type LineupSlot struct {
	Slot     string `json:"slot"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
}

// Strategy is one normalized lineup recommendation. Every PlayerID in
// Lineup is guaranteed to be in the run's owned set; entries the provider
// hallucinated are removed and recorded in DroppedPlayers with Degraded set.
type Strategy struct {
	Name           StrategyName `json:"name"`
	Lineup         []LineupSlot `json:"lineup"`
	ProjectedLow   float64      `json:"projected_low"`
	ProjectedHigh  float64      `json:"projected_high"`
	Reasoning      string       `json:"reasoning"`
	Pros           []string     `json:"pros"`
	Cons           []string     `json:"cons"`
	Risk           int          `json:"risk"`
	Confidence     int          `json:"confidence"`
	Degraded       bool         `json:"degraded"`
	DroppedPlayers []string     `json:"dropped_players,omitempty"`
}

// Result is a complete analysis: exactly three strategies in StrategyOrder
// plus run metadata. Immutable once returned.
type Result struct {
	ID          string     `json:"id"`
	Week        int        `json:"week"`
	Provider    string     `json:"provider"`
	GeneratedAt time.Time  `json:"generated_at"`
	Elapsed     float64    `json:"analysis_seconds"`
	Strategies  []Strategy `json:"strategies"`
}

// Summary condenses a Result for display.
type Summary struct {
	Provider      string  `json:"provider"`
	Week          int     `json:"week"`
	AvgRisk       float64 `json:"average_risk"`
	AvgConfidence float64 `json:"average_confidence"`
	BestStrategy  string  `json:"best_strategy"`
	Degraded      bool    `json:"degraded"`
}

// Summarize computes per-result aggregates: average risk/confidence and the
// highest-confidence strategy.
func (r *Result) Summarize() Summary {
	s := Summary{Provider: r.Provider, Week: r.Week}
	if len(r.Strategies) == 0 {
		return s
	}
	best := r.Strategies[0]
	for _, st := range r.Strategies {
		s.AvgRisk += float64(st.Risk)
		s.AvgConfidence += float64(st.Confidence)
		s.Degraded = s.Degraded || st.Degraded
		if st.Confidence > best.Confidence {
			best = st
		}
	}
	n := float64(len(r.Strategies))
	s.AvgRisk /= n
	s.AvgConfidence /= n
	s.BestStrategy = string(best.Name)
	return s
}
