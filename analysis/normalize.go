package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseError means the provider's output could not be normalized into three
// well-formed strategies. It is a semantic failure and is never retried at
// the transport level.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis: %s: %v", e.Reason, e.Err)
	}
	return "analysis: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// slotOrder fixes lineup ordering within a strategy. Unknown slots sort
// after the known ones, alphabetically.
var slotOrder = map[string]int{
	"QB": 0, "RB1": 1, "RB2": 2, "WR1": 3, "WR2": 4, "WR3": 5,
	"TE": 6, "FLEX": 7, "DST": 8, "DEF": 9, "K": 10,
}

// wireStrategy matches the JSON the prompt instructs providers to emit.
// Numeric fields are float64 because models frequently emit "risk_level":
// 7.5 despite being asked for integers.
type wireStrategy struct {
	Name           string            `json:"name"`
	Lineup         map[string]string `json:"lineup"`
	ProjectedRange []float64         `json:"projected_range"`
	Reasoning      string            `json:"reasoning"`
	Pros           []string          `json:"pros"`
	Cons           []string          `json:"cons"`
	RiskLevel      float64           `json:"risk_level"`
	Confidence     float64           `json:"confidence"`
}

type wireResponse struct {
	Strategies []wireStrategy `json:"strategies"`
}

// Normalize parses raw provider text into a Result containing exactly three
// strategies in StrategyOrder. Lineup entries naming players outside
// validIDs are dropped and the strategy marked degraded; risk and
// confidence are clamped into range. A missing or unclassifiable strategy
// is a ParseError, never a silent partial result.
func Normalize(raw string, validIDs map[string]bool, week int, providerName string) (*Result, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var resp wireResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, &ParseError{Reason: "response is not valid JSON", Err: err}
	}
	if len(resp.Strategies) == 0 {
		return nil, &ParseError{Reason: "response contains no strategies"}
	}

	byName := map[StrategyName]*Strategy{}
	for _, ws := range resp.Strategies {
		name, ok := classifyStrategy(ws.Name)
		if !ok {
			continue
		}
		if _, dup := byName[name]; dup {
			return nil, &ParseError{Reason: fmt.Sprintf("duplicate %s strategy", name)}
		}
		st := normalizeStrategy(name, ws, validIDs)
		byName[name] = st
	}

	result := &Result{
		ID:          uuid.New().String(),
		Week:        week,
		Provider:    providerName,
		GeneratedAt: time.Now().UTC(),
		Strategies:  make([]Strategy, 0, len(StrategyOrder)),
	}
	for _, name := range StrategyOrder {
		st, ok := byName[name]
		if !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("missing %s strategy", name)}
		}
		result.Strategies = append(result.Strategies, *st)
	}
	return result, nil
}

// extractJSON pulls the outermost JSON object out of surrounding prose.
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", &ParseError{Reason: "no JSON object found in response"}
	}
	return raw[start : end+1], nil
}

func normalizeStrategy(name StrategyName, ws wireStrategy, validIDs map[string]bool) *Strategy {
	st := &Strategy{
		Name:       name,
		Reasoning:  ws.Reasoning,
		Pros:       ws.Pros,
		Cons:       ws.Cons,
		Risk:       clamp(int(ws.RiskLevel), MinRisk, MaxRisk),
		Confidence: clamp(int(ws.Confidence), MinConfidence, MaxConfidence),
	}
	if len(ws.ProjectedRange) >= 2 {
		st.ProjectedLow = ws.ProjectedRange[0]
		st.ProjectedHigh = ws.ProjectedRange[1]
		if st.ProjectedHigh < st.ProjectedLow {
			st.ProjectedLow, st.ProjectedHigh = st.ProjectedHigh, st.ProjectedLow
		}
	}

	// Roster safety: the valid-ID set is the sole authority. Hallucinated
	// players are removed, never passed through; the strategy is kept and
	// flagged rather than backfilled with picks the model never made.
	slots := make([]string, 0, len(ws.Lineup))
	for slot := range ws.Lineup {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		oi, iok := slotOrder[slots[i]]
		oj, jok := slotOrder[slots[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok:
			return true
		case jok:
			return false
		default:
			return slots[i] < slots[j]
		}
	})

	for _, slot := range slots {
		id := ws.Lineup[slot]
		if !validIDs[id] {
			st.Degraded = true
			st.DroppedPlayers = append(st.DroppedPlayers, id)
			continue
		}
		st.Lineup = append(st.Lineup, LineupSlot{Slot: slot, PlayerID: id})
	}
	return st
}

// classifyStrategy maps a provider-chosen label ("Safe Floor Play",
// "high-ceiling") onto a canonical name.
func classifyStrategy(label string) (StrategyName, bool) {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "floor") || strings.Contains(l, "safe"):
		return SafeFloor, true
	case strings.Contains(l, "ceiling") || strings.Contains(l, "upside") || strings.Contains(l, "high"):
		return HighCeiling, true
	case strings.Contains(l, "balanc"):
		return Balanced, true
	default:
		return "", false
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
