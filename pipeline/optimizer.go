// Package pipeline wires the vault, cache, Sleeper client, projections,
// scoring and AI provider into the end-to-end lineup optimizer. The
// Optimizer is a small state machine: nothing works before Unlock, and
// exports only accept analyzed results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fantasyops/lineupai/analysis"
	"github.com/fantasyops/lineupai/cache"
	"github.com/fantasyops/lineupai/config"
	"github.com/fantasyops/lineupai/httpx"
	"github.com/fantasyops/lineupai/projections"
	"github.com/fantasyops/lineupai/provider"
	"github.com/fantasyops/lineupai/scoring"
	"github.com/fantasyops/lineupai/sleeper"
)

// State tracks how far the optimizer has progressed.
type State int

const (
	Uninitialized State = iota
	Unlocked
	DataLoaded
	Analyzed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Unlocked:
		return "unlocked"
	case DataLoaded:
		return "data loaded"
	case Analyzed:
		return "analyzed"
	default:
		return "unknown"
	}
}

// ErrLocked is returned by any operation attempted before Unlock succeeds.
var ErrLocked = errors.New("pipeline: unlock required")

// ValidationError means the loaded league data cannot support the requested
// analysis, for example a week with no matchup. The optimizer state is
// unchanged by a validation failure.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "pipeline: " + e.Reason }

// fanOutLimit bounds concurrent upstream fetches during a data load.
const fanOutLimit = 4

// weekData is everything LoadWeek gathers for one analysis.
type weekData struct {
	week     int
	league   sleeper.League
	owned    []scoring.ScoredPlayer
	opponent []scoring.ScoredPlayer
}

// Optimizer drives the full recommendation pipeline.
type Optimizer struct {
	vault *config.Store
	log   zerolog.Logger

	cacheDir string
	now      func() time.Time

	cfg         *config.AppConfig
	cache       *cache.Store
	transport   *httpx.Transport
	sleeper     *sleeper.Client
	projections *projections.Service
	provider    provider.Provider

	state  State
	data   *weekData
	result *analysis.Result
}

// New builds an optimizer over the encrypted config at vaultPath and the
// cache directory at cacheDir. It starts Uninitialized.
func New(vaultPath, cacheDir string, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		vault:    config.NewStore(vaultPath, log),
		cacheDir: cacheDir,
		now:      time.Now,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// State reports the current pipeline state.
func (o *Optimizer) State() State { return o.state }

// Config returns the unlocked configuration, or nil before Unlock.
func (o *Optimizer) Config() *config.AppConfig { return o.cfg }

// Unlock decrypts the stored configuration and assembles every downstream
// component. A wrong password surfaces as config.ErrAuth and leaves the
// optimizer Uninitialized.
func (o *Optimizer) Unlock(password string) error {
	cfg, err := o.vault.Unlock(password)
	if err != nil {
		return err
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return o.wire(cfg)
}

// wire builds the component graph for cfg. Split out from Unlock so tests
// can start an optimizer from an in-memory config.
func (o *Optimizer) wire(cfg *config.AppConfig) error {
	store, err := cache.NewStore(o.cacheDir, cfg.CacheEnabled, o.log)
	if err != nil {
		return err
	}

	policy := httpx.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries
	policy.Timeout = cfg.RequestTimeout()
	transport := httpx.NewTransport(nil, policy, o.log)

	ttl := cfg.CacheTTL()
	o.cfg = cfg
	o.cache = store
	o.transport = transport
	o.sleeper = sleeper.NewClient(httpx.NewClient(sleeper.BaseURL, transport, o.log), store, ttl, o.log)
	o.projections = projections.NewService(
		httpx.NewClient(projections.ESPNBaseURL, transport, o.log),
		httpx.NewClient(projections.FantasyProsBaseURL, transport, o.log),
		cfg.FantasyProsAPIKey,
		store, ttl, o.log,
	)
	o.provider = provider.New(cfg, transport, o.log)

	o.state = Unlocked
	o.data = nil
	o.result = nil
	o.log.Info().Str("provider", o.provider.Name()).Msg("pipeline unlocked")
	return nil
}

// LoadWeek gathers league, roster, matchup, player and projection data for
// the given week and scores both sides of the user's matchup. Independent
// fetches run concurrently; the merge is deterministic.
func (o *Optimizer) LoadWeek(ctx context.Context, week int) error {
	if o.state < Unlocked {
		return ErrLocked
	}
	if week < 1 || week > 18 {
		return &ValidationError{Reason: fmt.Sprintf("week %d out of range", week)}
	}

	season := currentSeason(o.now())
	user, err := o.sleeper.User(ctx, o.cfg.SleeperUsername)
	if err != nil {
		return err
	}
	leagues, err := o.sleeper.Leagues(ctx, user.UserID, season)
	if err != nil {
		return err
	}
	if len(leagues) == 0 {
		return &ValidationError{Reason: fmt.Sprintf("no leagues for %s in %s", o.cfg.SleeperUsername, season)}
	}
	league := pickLeague(leagues)
	o.log.Info().Str("league", league.Name).Int("week", week).Msg("loading week data")

	var (
		rosters  []sleeper.Roster
		matchups []sleeper.Matchup
		players  map[string]sleeper.Player
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	g.Go(func() error {
		var err error
		rosters, err = o.sleeper.Rosters(gctx, league.LeagueID)
		return err
	})
	g.Go(func() error {
		var err error
		matchups, err = o.sleeper.Matchups(gctx, league.LeagueID, week)
		return err
	})
	g.Go(func() error {
		var err error
		players, err = o.sleeper.AllPlayers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	mine, opp, err := resolveMatchup(rosters, matchups, user.UserID, week)
	if err != nil {
		return err
	}

	ids := append(append([]string{}, mine.Players...), opp.Players...)
	projs, err := o.projections.ForPlayers(ctx, ids, week, season)
	if err != nil {
		return err
	}

	rules := league.ScoringSettings
	o.data = &weekData{
		week:     week,
		league:   league,
		owned:    scoring.Score(rosterPlayers(mine, players), rules, projs, nil),
		opponent: scoring.Score(rosterPlayers(opp, players), rules, projs, nil),
	}
	o.state = DataLoaded
	o.result = nil
	return nil
}

// Analyze runs the AI provider over the loaded week and normalizes its
// answer. A ParseError or retryable provider failure gets exactly one
// further attempt before the error is returned.
func (o *Optimizer) Analyze(ctx context.Context) (*analysis.Result, error) {
	if o.state < DataLoaded || o.data == nil {
		if o.state < Unlocked {
			return nil, ErrLocked
		}
		return nil, &ValidationError{Reason: "no week data loaded"}
	}

	ac := analysis.BuildContext(o.data.week, o.data.league.Name, o.data.league.ScoringSettings, o.data.owned, o.data.opponent)
	start := o.now()

	result, err := o.analyzeOnce(ctx, ac)
	if err != nil && retryableAnalysis(err) {
		o.log.Warn().Err(err).Msg("analysis failed, retrying once")
		result, err = o.analyzeOnce(ctx, ac)
	}
	if err != nil {
		return nil, err
	}

	result.Elapsed = o.now().Sub(start).Seconds()
	for i := range result.Strategies {
		for j := range result.Strategies[i].Lineup {
			slot := &result.Strategies[i].Lineup[j]
			slot.Name = ac.PlayerName(slot.PlayerID)
		}
	}

	o.result = result
	o.state = Analyzed
	o.log.Info().
		Str("provider", result.Provider).
		Int("week", result.Week).
		Float64("seconds", result.Elapsed).
		Msg("analysis complete")
	return result, nil
}

func (o *Optimizer) analyzeOnce(ctx context.Context, ac *analysis.Context) (*analysis.Result, error) {
	raw, err := o.provider.Analyze(ctx, ac)
	if err != nil {
		return nil, err
	}
	return analysis.Normalize(raw, ac.ValidIDSet(), ac.Week, o.provider.Name())
}

// retryableAnalysis reports whether a failed analysis deserves the single
// semantic retry. Malformed output and transient upstream failures do;
// credential and quota problems will not improve on a second call.
func retryableAnalysis(err error) bool {
	var parseErr *analysis.ParseError
	if errors.As(err, &parseErr) {
		return true
	}
	var provErr *provider.Error
	if errors.As(err, &provErr) {
		return provErr.Kind == provider.UpstreamFailure
	}
	return false
}

// Result returns the latest analysis, or nil before Analyze succeeds.
func (o *Optimizer) Result() *analysis.Result { return o.result }

// TrendingPlayer is a trending add enriched with identity from the player
// dictionary.
type TrendingPlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Team     string `json:"team"`
	Adds     int    `json:"adds"`
}

// TrendingPlayers lists the most-added players across Sleeper over the last
// day, with names resolved from the player dictionary.
func (o *Optimizer) TrendingPlayers(ctx context.Context, limit int) ([]TrendingPlayer, error) {
	if o.state < Unlocked {
		return nil, ErrLocked
	}
	trending, err := o.sleeper.TrendingAdds(ctx, 24, limit)
	if err != nil {
		return nil, err
	}
	dict, err := o.sleeper.AllPlayers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TrendingPlayer, 0, len(trending))
	for _, t := range trending {
		p := dict[t.PlayerID]
		out = append(out, TrendingPlayer{
			PlayerID: t.PlayerID,
			Name:     p.Name(),
			Position: p.Position,
			Team:     p.Team,
			Adds:     t.Count,
		})
	}
	return out, nil
}

// CacheInfo describes the cache's current footprint.
type CacheInfo struct {
	Enabled   bool  `json:"enabled"`
	SizeBytes int64 `json:"size_bytes"`
}

// CacheInfo reports whether caching is on and how much disk it uses.
func (o *Optimizer) CacheInfo() (CacheInfo, error) {
	if o.state < Unlocked {
		return CacheInfo{}, ErrLocked
	}
	return CacheInfo{Enabled: o.cache.Enabled(), SizeBytes: o.cache.Size()}, nil
}

// ClearCache removes every cached payload.
func (o *Optimizer) ClearCache() error {
	if o.state < Unlocked {
		return ErrLocked
	}
	return o.cache.Clear()
}

// ProviderInfo describes the active AI backend.
type ProviderInfo struct {
	Name          string `json:"name"`
	HasCredential bool   `json:"has_credential"`
}

// ProviderInfo reports which provider is active and whether it has a key.
func (o *Optimizer) ProviderInfo() (ProviderInfo, error) {
	if o.state < Unlocked {
		return ProviderInfo{}, ErrLocked
	}
	return ProviderInfo{
		Name:          o.provider.Name(),
		HasCredential: o.cfg.AIProvider == config.ProviderMock || o.cfg.AIAPIKey != "",
	}, nil
}

// pickLeague prefers an in-season league, falling back to the first one.
func pickLeague(leagues []sleeper.League) sleeper.League {
	for _, l := range leagues {
		if l.Status == "in_season" {
			return l
		}
	}
	return leagues[0]
}

// resolveMatchup finds the user's roster and the opposing roster for the
// week. Both sides of a pairing share a matchup ID.
func resolveMatchup(rosters []sleeper.Roster, matchups []sleeper.Matchup, userID string, week int) (mine, opp sleeper.Roster, err error) {
	byID := make(map[int]sleeper.Roster, len(rosters))
	var found bool
	for _, r := range rosters {
		byID[r.RosterID] = r
		if r.OwnerID == userID {
			mine = r
			found = true
		}
	}
	if !found {
		return mine, opp, &ValidationError{Reason: "user has no roster in this league"}
	}

	var mineMatch *sleeper.Matchup
	for i, m := range matchups {
		if m.RosterID == mine.RosterID {
			mineMatch = &matchups[i]
			break
		}
	}
	if mineMatch == nil {
		return mine, opp, &ValidationError{Reason: fmt.Sprintf("no matchup for week %d", week)}
	}
	for _, m := range matchups {
		if m.MatchupID == mineMatch.MatchupID && m.RosterID != mine.RosterID {
			return mine, byID[m.RosterID], nil
		}
	}
	return mine, opp, &ValidationError{Reason: fmt.Sprintf("no opponent found for week %d", week)}
}

// rosterPlayers maps a roster's player IDs through the player dictionary.
// IDs missing from the dictionary (new signings, team defenses with odd
// encodings) are kept with the ID as the only identity.
func rosterPlayers(r sleeper.Roster, dict map[string]sleeper.Player) []sleeper.Player {
	out := make([]sleeper.Player, 0, len(r.Players))
	for _, id := range r.Players {
		p, ok := dict[id]
		if !ok {
			p = sleeper.Player{PlayerID: id, LastName: id}
		}
		out = append(out, p)
	}
	return out
}

// currentSeason maps a time to its NFL season. January and February still
// belong to the prior year's season.
func currentSeason(now time.Time) string {
	y := now.Year()
	if now.Month() < time.March {
		y--
	}
	return strconv.Itoa(y)
}

// CurrentWeek estimates the NFL week for a time, anchored on the first
// Thursday of September, clamped to the 1..18 regular season.
func CurrentWeek(now time.Time) int {
	anchor := time.Date(seasonYear(now), time.September, 1, 0, 0, 0, 0, time.UTC)
	for anchor.Weekday() != time.Thursday {
		anchor = anchor.AddDate(0, 0, 1)
	}
	week := int(now.Sub(anchor)/(7*24*time.Hour)) + 1
	if week < 1 {
		return 1
	}
	if week > 18 {
		return 18
	}
	return week
}

func seasonYear(now time.Time) int {
	y := now.Year()
	if now.Month() < time.March {
		y--
	}
	return y
}
