package analysis

import (
	"sort"

	"github.com/fantasyops/lineupai/scoring"
)

// rosterDetailLimit bounds the per-roster detail rows included in the
// context, keeping the rendered prompt inside provider token limits.
const rosterDetailLimit = 30

// ContextPlayer is one player as presented to the provider.
type ContextPlayer struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Position      string  `json:"position"`
	Team          string  `json:"team"`
	InjuryStatus  string  `json:"injury_status,omitempty"`
	Injured       bool    `json:"injured,omitempty"`
	Projected     float64 `json:"projected_points"`
	HasProjection bool    `json:"has_projection"`
	ValueScore    float64 `json:"value_score"`
}

// Context is the bounded, roster-scoped payload an AI provider analyzes.
// It contains only owned and opponent players, and carries the sorted list
// of valid (ownable) player IDs as ground truth for the normalizer,
// independent of anything the provider claims.
type Context struct {
	Week           int                `json:"week"`
	LeagueName     string             `json:"league_name"`
	Scoring        map[string]float64 `json:"scoring"`
	Roster         []ContextPlayer    `json:"roster"`
	Opponent       []ContextPlayer    `json:"opponent"`
	ValidPlayerIDs []string           `json:"valid_player_ids"`
}

// BuildContext assembles a Context from scored rosters. Both inputs are
// assumed to be in scoring order (value descending, ID ascending), which
// makes the result deterministic for identical inputs.
func BuildContext(week int, leagueName string, rules map[string]float64, owned, opponent []scoring.ScoredPlayer) *Context {
	c := &Context{
		Week:       week,
		LeagueName: leagueName,
		Scoring:    rules,
		Roster:     contextPlayers(owned),
		Opponent:   contextPlayers(opponent),
	}

	c.ValidPlayerIDs = make([]string, 0, len(owned))
	for _, sp := range owned {
		c.ValidPlayerIDs = append(c.ValidPlayerIDs, sp.Player.PlayerID)
	}
	sort.Strings(c.ValidPlayerIDs)
	return c
}

// ValidIDSet returns the ownable IDs as a membership set.
func (c *Context) ValidIDSet() map[string]bool {
	set := make(map[string]bool, len(c.ValidPlayerIDs))
	for _, id := range c.ValidPlayerIDs {
		set[id] = true
	}
	return set
}

// PlayerName resolves an owned or opponent player ID to its display name.
func (c *Context) PlayerName(id string) string {
	for _, p := range c.Roster {
		if p.ID == id {
			return p.Name
		}
	}
	for _, p := range c.Opponent {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}

func contextPlayers(scored []scoring.ScoredPlayer) []ContextPlayer {
	n := len(scored)
	if n > rosterDetailLimit {
		n = rosterDetailLimit
	}
	out := make([]ContextPlayer, 0, n)
	for _, sp := range scored[:n] {
		out = append(out, ContextPlayer{
			ID:            sp.Player.PlayerID,
			Name:          sp.Player.Name(),
			Position:      sp.Player.Position,
			Team:          sp.Player.Team,
			InjuryStatus:  sp.Player.InjuryStatus,
			Injured:       sp.Injured,
			Projected:     sp.Projected,
			HasProjection: !sp.Unprojected,
			ValueScore:    sp.ValueScore,
		})
	}
	return out
}
