package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasyops/lineupai/analysis"
	"github.com/fantasyops/lineupai/config"
	"github.com/fantasyops/lineupai/httpx"
	"github.com/fantasyops/lineupai/scoring"
	"github.com/fantasyops/lineupai/sleeper"
)

func testContext() *analysis.Context {
	mk := func(id, pos string, value float64, injury string) scoring.ScoredPlayer {
		return scoring.ScoredPlayer{
			Player: sleeper.Player{
				PlayerID:     id,
				FirstName:    "Player",
				LastName:     id,
				Position:     pos,
				InjuryStatus: injury,
			},
			Projected:  value,
			ValueScore: value,
			Injured:    injury == "Out",
		}
	}
	owned := []scoring.ScoredPlayer{
		mk("1", "QB", 22, ""),
		mk("2", "RB", 18, ""),
		mk("3", "RB", 15, ""),
		mk("4", "WR", 14, ""),
		mk("5", "WR", 13, ""),
		mk("6", "TE", 11, ""),
		mk("7", "WR", 9, ""),
		mk("8", "RB", 7, "Out"),
	}
	return analysis.BuildContext(5, "Test League", nil, owned, nil)
}

func testTransport() *httpx.Transport {
	return httpx.NewTransport(nil, httpx.DefaultPolicy(), zerolog.Nop())
}

func TestFactorySelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{config.ProviderMock, "mock"},
		{config.ProviderOpenAI, "openai"},
		{config.ProviderAnthropic, "anthropic"},
		{"something-else", "mock"},
	}
	for _, tt := range tests {
		cfg := config.DefaultConfig()
		cfg.AIProvider = tt.provider
		cfg.AIAPIKey = "key"
		p := New(cfg, testTransport(), zerolog.Nop())
		assert.Equal(t, tt.want, p.Name())
	}
}

func TestMockDeterministic(t *testing.T) {
	m := NewMock()
	ctx := testContext()

	a, err := m.Analyze(context.Background(), ctx)
	require.NoError(t, err)
	b, err := m.Analyze(context.Background(), ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMockOutputNormalizes(t *testing.T) {
	m := NewMock()
	ac := testContext()

	raw, err := m.Analyze(context.Background(), ac)
	require.NoError(t, err)

	result, err := analysis.Normalize(raw, ac.ValidIDSet(), ac.Week, m.Name())
	require.NoError(t, err)
	require.Len(t, result.Strategies, 3)
	for _, st := range result.Strategies {
		assert.False(t, st.Degraded, "mock must only pick owned players")
		assert.NotEmpty(t, st.Lineup)
		assert.Len(t, st.Pros, 3)
		assert.Len(t, st.Cons, 3)
	}
}

func TestMockSkipsInjuredPlayers(t *testing.T) {
	m := NewMock()
	ac := testContext()

	raw, err := m.Analyze(context.Background(), ac)
	require.NoError(t, err)

	result, err := analysis.Normalize(raw, ac.ValidIDSet(), ac.Week, m.Name())
	require.NoError(t, err)
	for _, st := range result.Strategies {
		for _, slot := range st.Lineup {
			assert.NotEqual(t, "8", slot.PlayerID, "player 8 is Out and must not start")
		}
	}
}

func TestMockFillsExpectedSlots(t *testing.T) {
	m := NewMock()
	ac := testContext()

	raw, err := m.Analyze(context.Background(), ac)
	require.NoError(t, err)

	result, err := analysis.Normalize(raw, ac.ValidIDSet(), ac.Week, m.Name())
	require.NoError(t, err)

	slots := map[string]string{}
	for _, s := range result.Strategies[0].Lineup {
		slots[s.Slot] = s.PlayerID
	}
	assert.Equal(t, "1", slots["QB"])
	assert.Equal(t, "2", slots["RB1"])
	assert.Equal(t, "3", slots["RB2"])
	assert.Equal(t, "4", slots["WR1"])
	assert.Equal(t, "5", slots["WR2"])
	assert.Equal(t, "6", slots["TE"])
	assert.Equal(t, "7", slots["FLEX"], "flex takes the best remaining skill player")
}

func TestRealProvidersRequireCredentials(t *testing.T) {
	ac := testContext()

	for name, p := range map[string]Provider{
		"anthropic": NewAnthropic("", testTransport(), zerolog.Nop()),
		"openai":    NewOpenAI("", testTransport(), zerolog.Nop()),
	} {
		_, err := p.Analyze(context.Background(), ac)
		var provErr *Error
		require.ErrorAs(t, err, &provErr, name)
		assert.Equal(t, MissingCredential, provErr.Kind, name)
		assert.Equal(t, name, provErr.Provider)
	}
}

func TestClassifyStatus(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusTooManyRequests, QuotaExceeded},
		{http.StatusPaymentRequired, QuotaExceeded},
		{http.StatusUnauthorized, MissingCredential},
		{http.StatusForbidden, MissingCredential},
		{http.StatusInternalServerError, UpstreamFailure},
		{http.StatusBadRequest, UpstreamFailure},
	}
	for _, tt := range tests {
		got := classifyStatus("test", tt.status, cause)
		assert.Equal(t, tt.want, got.Kind, "status %d", tt.status)
		assert.ErrorIs(t, got, cause)
	}
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Provider: "anthropic", Kind: QuotaExceeded, Err: errors.New("429")}
	assert.Contains(t, err.Error(), "anthropic")
	assert.Contains(t, err.Error(), "quota exceeded")

	bare := &Error{Provider: "openai", Kind: MissingCredential}
	assert.Contains(t, bare.Error(), "missing credential")
}
