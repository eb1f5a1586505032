package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasyops/lineupai/analysis"
	"github.com/fantasyops/lineupai/config"
	"github.com/fantasyops/lineupai/provider"
	"github.com/fantasyops/lineupai/scoring"
	"github.com/fantasyops/lineupai/sleeper"
)

func testOptimizer(t *testing.T) *Optimizer {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "config.enc"), filepath.Join(dir, "cache"), zerolog.Nop())
}

func mockConfig() *config.AppConfig {
	cfg := config.DefaultConfig()
	cfg.SleeperUsername = "testuser"
	return cfg
}

func clearOverrideEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"LINEUPAI_PROVIDER", "LINEUPAI_API_KEY", "OPENAI_API_KEY",
		"ANTHROPIC_API_KEY", "SLEEPER_USERNAME", "FANTASYPROS_API_KEY",
	} {
		t.Setenv(v, "")
	}
}

// loadTestData puts a scored two-roster week directly into the optimizer.
func loadTestData(t *testing.T, o *Optimizer) {
	t.Helper()
	mk := func(id, pos string, value float64) scoring.ScoredPlayer {
		return scoring.ScoredPlayer{
			Player:     sleeper.Player{PlayerID: id, FirstName: "Player", LastName: id, Position: pos},
			Projected:  value,
			ValueScore: value,
		}
	}
	o.data = &weekData{
		week:   5,
		league: sleeper.League{Name: "Test League"},
		owned: []scoring.ScoredPlayer{
			mk("1", "QB", 22), mk("2", "RB", 18), mk("3", "RB", 15),
			mk("4", "WR", 14), mk("5", "WR", 13), mk("6", "TE", 11), mk("7", "WR", 9),
		},
		opponent: []scoring.ScoredPlayer{mk("9", "QB", 20)},
	}
	o.state = DataLoaded
}

func TestOperationsRequireUnlock(t *testing.T) {
	o := testOptimizer(t)
	ctx := context.Background()

	assert.ErrorIs(t, o.LoadWeek(ctx, 1), ErrLocked)
	_, err := o.Analyze(ctx)
	assert.ErrorIs(t, err, ErrLocked)
	_, err = o.TrendingPlayers(ctx, 5)
	assert.ErrorIs(t, err, ErrLocked)
	_, err = o.CacheInfo()
	assert.ErrorIs(t, err, ErrLocked)
	assert.ErrorIs(t, o.ClearCache(), ErrLocked)
	_, err = o.ProviderInfo()
	assert.ErrorIs(t, err, ErrLocked)
}

func TestUnlockWrongPassword(t *testing.T) {
	clearOverrideEnv(t)
	o := testOptimizer(t)
	require.NoError(t, o.vault.Save(mockConfig(), "right"))

	assert.ErrorIs(t, o.Unlock("wrong"), config.ErrAuth)
	assert.Equal(t, Uninitialized, o.State())
}

func TestUnlockWiresComponents(t *testing.T) {
	clearOverrideEnv(t)
	o := testOptimizer(t)
	require.NoError(t, o.vault.Save(mockConfig(), "pw"))

	require.NoError(t, o.Unlock("pw"))
	assert.Equal(t, Unlocked, o.State())

	info, err := o.ProviderInfo()
	require.NoError(t, err)
	assert.Equal(t, "mock", info.Name)
	assert.True(t, info.HasCredential)

	cacheInfo, err := o.CacheInfo()
	require.NoError(t, err)
	assert.True(t, cacheInfo.Enabled)
}

func TestAnalyzeRequiresLoadedWeek(t *testing.T) {
	o := testOptimizer(t)
	require.NoError(t, o.wire(mockConfig()))

	_, err := o.Analyze(context.Background())
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "no week data")
}

func TestAnalyzeWithMockProvider(t *testing.T) {
	o := testOptimizer(t)
	require.NoError(t, o.wire(mockConfig()))
	loadTestData(t, o)

	result, err := o.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Analyzed, o.State())
	assert.Same(t, result, o.Result())

	require.Len(t, result.Strategies, 3)
	assert.Equal(t, 5, result.Week)
	assert.Equal(t, "mock", result.Provider)
	for _, st := range result.Strategies {
		for _, slot := range st.Lineup {
			assert.NotEmpty(t, slot.Name, "lineup slots must carry resolved player names")
		}
	}
}

// flakyProvider fails a set number of times before succeeding with the
// mock's output.
type flakyProvider struct {
	failures int
	calls    int
	err      error
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Analyze(ctx context.Context, ac *analysis.Context) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		if f.err != nil {
			return "", f.err
		}
		return "I cannot produce JSON today.", nil
	}
	return provider.NewMock().Analyze(ctx, ac)
}

func TestAnalyzeRetriesOnceOnParseError(t *testing.T) {
	o := testOptimizer(t)
	require.NoError(t, o.wire(mockConfig()))
	loadTestData(t, o)

	flaky := &flakyProvider{failures: 1}
	o.provider = flaky

	result, err := o.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flaky.calls)
	assert.Len(t, result.Strategies, 3)
}

func TestAnalyzeGivesUpAfterSecondFailure(t *testing.T) {
	o := testOptimizer(t)
	require.NoError(t, o.wire(mockConfig()))
	loadTestData(t, o)

	flaky := &flakyProvider{failures: 2}
	o.provider = flaky

	_, err := o.Analyze(context.Background())
	var parseErr *analysis.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2, flaky.calls, "exactly one semantic retry")
	assert.NotEqual(t, Analyzed, o.State())
}

func TestAnalyzeDoesNotRetryCredentialFailures(t *testing.T) {
	o := testOptimizer(t)
	require.NoError(t, o.wire(mockConfig()))
	loadTestData(t, o)

	flaky := &flakyProvider{
		failures: 1,
		err:      &provider.Error{Provider: "flaky", Kind: provider.MissingCredential},
	}
	o.provider = flaky

	_, err := o.Analyze(context.Background())
	var provErr *provider.Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, provider.MissingCredential, provErr.Kind)
	assert.Equal(t, 1, flaky.calls, "credential failures are terminal")
}

func TestAnalyzeRetriesUpstreamFailures(t *testing.T) {
	o := testOptimizer(t)
	require.NoError(t, o.wire(mockConfig()))
	loadTestData(t, o)

	flaky := &flakyProvider{
		failures: 1,
		err:      &provider.Error{Provider: "flaky", Kind: provider.UpstreamFailure},
	}
	o.provider = flaky

	_, err := o.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flaky.calls)
}

func TestLoadWeekRejectsOutOfRangeWeeks(t *testing.T) {
	o := testOptimizer(t)
	require.NoError(t, o.wire(mockConfig()))

	var vErr *ValidationError
	assert.ErrorAs(t, o.LoadWeek(context.Background(), 0), &vErr)
	assert.ErrorAs(t, o.LoadWeek(context.Background(), 19), &vErr)
}

func TestResolveMatchup(t *testing.T) {
	rosters := []sleeper.Roster{
		{RosterID: 1, OwnerID: "me", Players: []string{"1", "2"}},
		{RosterID: 2, OwnerID: "rival", Players: []string{"3"}},
		{RosterID: 3, OwnerID: "other", Players: []string{"4"}},
	}
	matchups := []sleeper.Matchup{
		{MatchupID: 10, RosterID: 1},
		{MatchupID: 10, RosterID: 2},
		{MatchupID: 11, RosterID: 3},
	}

	mine, opp, err := resolveMatchup(rosters, matchups, "me", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, mine.RosterID)
	assert.Equal(t, 2, opp.RosterID)
}

func TestResolveMatchupErrors(t *testing.T) {
	rosters := []sleeper.Roster{{RosterID: 1, OwnerID: "me"}}
	var vErr *ValidationError

	// Unknown user.
	_, _, err := resolveMatchup(rosters, nil, "stranger", 4)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "no roster")

	// Bye week: no matchup entry for the user's roster.
	_, _, err = resolveMatchup(rosters, []sleeper.Matchup{{MatchupID: 9, RosterID: 7}}, "me", 4)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "no matchup for week 4")

	// Matchup exists but the other side is missing.
	_, _, err = resolveMatchup(rosters, []sleeper.Matchup{{MatchupID: 9, RosterID: 1}}, "me", 4)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "no opponent")
}

func TestPickLeague(t *testing.T) {
	leagues := []sleeper.League{
		{LeagueID: "a", Status: "complete"},
		{LeagueID: "b", Status: "in_season"},
	}
	assert.Equal(t, "b", pickLeague(leagues).LeagueID)

	noneActive := []sleeper.League{{LeagueID: "x", Status: "complete"}}
	assert.Equal(t, "x", pickLeague(noneActive).LeagueID)
}

func TestCurrentSeason(t *testing.T) {
	assert.Equal(t, "2025", currentSeason(time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025", currentSeason(time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026", currentSeason(time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCurrentWeek(t *testing.T) {
	// The 2025 season anchors on Thursday, September 4.
	assert.Equal(t, 1, CurrentWeek(time.Date(2025, time.September, 4, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, CurrentWeek(time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, CurrentWeek(time.Date(2025, time.September, 11, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, CurrentWeek(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)), "offseason clamps to week 1")
	assert.Equal(t, 18, CurrentWeek(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)), "late season clamps to week 18")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "unlocked", Unlocked.String())
	assert.Equal(t, "data loaded", DataLoaded.String())
	assert.Equal(t, "analyzed", Analyzed.String())
}
