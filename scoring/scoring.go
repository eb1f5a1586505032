// Package scoring ranks players by projected value under a league's scoring
// rules, weighted by position scarcity.
package scoring

import (
	"sort"

	"github.com/fantasyops/lineupai/projections"
	"github.com/fantasyops/lineupai/sleeper"
)

// ScarcityMultipliers weights a projection by how replaceable the position
// is. RB and TE production is hardest to replace off the waiver wire.
var ScarcityMultipliers = map[string]float64{
	"QB":  1.0,
	"RB":  1.2,
	"WR":  1.1,
	"TE":  1.3,
	"K":   0.8,
	"DEF": 0.9,
}

// DisqualifyingStatuses are injury designations that flag a player as
// unavailable. Flagged players are still scored; exclusion is a downstream
// decision.
var DisqualifyingStatuses = map[string]bool{
	"Out":       true,
	"IR":        true,
	"PUP":       true,
	"Suspended": true,
}

// UnprojectedScore is the neutral base score for players with no projection.
const UnprojectedScore = 0.0

// ScoredPlayer is a player with its computed value for one run.
type ScoredPlayer struct {
	Player      sleeper.Player
	Projected   float64 // points under the league rules
	ValueScore  float64 // Projected x scarcity multiplier
	Unprojected bool
	Injured     bool
}

// Score computes a value score for each player and returns them ordered by
// score descending, ties broken by player ID ascending. Players whose
// position is not in positionsOfInterest are skipped; an empty filter keeps
// everyone.
func Score(players []sleeper.Player, rules map[string]float64, projs map[string]projections.Projection, positionsOfInterest []string) []ScoredPlayer {
	keep := map[string]bool{}
	for _, p := range positionsOfInterest {
		keep[p] = true
	}

	out := make([]ScoredPlayer, 0, len(players))
	for _, p := range players {
		if len(keep) > 0 && !keep[p.Position] {
			continue
		}

		sp := ScoredPlayer{
			Player:  p,
			Injured: DisqualifyingStatuses[p.InjuryStatus],
		}

		proj, ok := projs[p.PlayerID]
		if !ok {
			sp.Unprojected = true
			sp.Projected = UnprojectedScore
		} else {
			sp.Projected = projectedPoints(proj, rules)
		}

		mult, ok := ScarcityMultipliers[p.Position]
		if !ok {
			mult = 1.0
		}
		sp.ValueScore = sp.Projected * mult
		out = append(out, sp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ValueScore != out[j].ValueScore {
			return out[i].ValueScore > out[j].ValueScore
		}
		return out[i].Player.PlayerID < out[j].Player.PlayerID
	})
	return out
}

// projectedPoints applies league scoring rules to a projected stat line when
// one is available, falling back to the source's own point estimate. A PPR
// league therefore values receptions through its receptions rule rather than
// whatever default the projection source assumed.
func projectedPoints(proj projections.Projection, rules map[string]float64) float64 {
	if len(proj.StatLine) == 0 || len(rules) == 0 {
		return proj.Points
	}
	var total float64
	var matched bool
	for stat, count := range proj.StatLine {
		if weight, ok := rules[stat]; ok {
			total += count * weight
			matched = true
		}
	}
	if !matched {
		return proj.Points
	}
	return total
}
