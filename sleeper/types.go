package sleeper

// User is a Sleeper account.
type User struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

// League is one fantasy league the user belongs to.
type League struct {
	LeagueID        string             `json:"league_id"`
	Name            string             `json:"name"`
	Season          string             `json:"season"`
	Status          string             `json:"status"`
	ScoringSettings map[string]float64 `json:"scoring_settings"`
	RosterPositions []string           `json:"roster_positions"`
	Settings        LeagueSettings     `json:"settings"`
}

// LeagueSettings carries the subset of league settings the analysis uses.
type LeagueSettings struct {
	NumTeams     int `json:"num_teams"`
	PlayoffTeams int `json:"playoff_teams"`
	LeagueType   int `json:"type"`
}

// Roster is one team's player set within a league.
type Roster struct {
	RosterID int      `json:"roster_id"`
	OwnerID  string   `json:"owner_id"`
	Players  []string `json:"players"`
	Starters []string `json:"starters"`
	Taxi     []string `json:"taxi"`
}

// Matchup is one side of a weekly head-to-head pairing. Two rosters share a
// MatchupID.
type Matchup struct {
	MatchupID int      `json:"matchup_id"`
	RosterID  int      `json:"roster_id"`
	Points    float64  `json:"points"`
	Players   []string `json:"players"`
	Starters  []string `json:"starters"`
}

// Player is one entry in the full NFL player dictionary. Immutable after
// load within one run.
type Player struct {
	PlayerID         string   `json:"player_id"`
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Team             string   `json:"team"`
	Position         string   `json:"position"`
	FantasyPositions []string `json:"fantasy_positions"`
	Status           string   `json:"status"`
	InjuryStatus     string   `json:"injury_status"`
}

// Name returns the player's display name.
func (p Player) Name() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// TrendingPlayer is one entry from the trending-adds feed.
type TrendingPlayer struct {
	PlayerID string `json:"player_id"`
	Count    int    `json:"count"`
}
