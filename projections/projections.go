// Package projections fetches weekly fantasy point projections. ESPN is
// queried first (no key required); FantasyPros fills in misses when an API
// key is configured. Players absent from both sources simply have no
// projection, and downstream scoring treats that explicitly.
package projections

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/fantasyops/lineupai/cache"
	"github.com/fantasyops/lineupai/httpx"
)

const (
	ESPNBaseURL        = "https://fantasy.espn.com/apis/v3/games/ffl"
	FantasyProsBaseURL = "https://api.fantasypros.com/v2"
)

// Projection is one player's projected week, in fantasy points. StatLine
// holds the underlying stat counts (receptions, yards and so on) when the source
// provides them, keyed by the same stat names as league scoring rules.
type Projection struct {
	PlayerID string             `json:"player_id"`
	Points   float64            `json:"points"`
	StatLine map[string]float64 `json:"stats,omitempty"`
	Source   string             `json:"source"`
	Week     int                `json:"week"`
}

// Service merges projections from both upstreams.
type Service struct {
	espn        *httpx.Client
	fantasyPros *httpx.Client
	fpKey       string
	cache       *cache.Store
	ttl         time.Duration
	log         zerolog.Logger
}

// NewService builds a projection service. fpKey may be empty, in which case
// FantasyPros is skipped entirely.
func NewService(espn, fantasyPros *httpx.Client, fpKey string, store *cache.Store, ttl time.Duration, log zerolog.Logger) *Service {
	if fpKey != "" {
		fantasyPros.Header.Set("Authorization", "Bearer "+fpKey)
	}
	return &Service{
		espn:        espn,
		fantasyPros: fantasyPros,
		fpKey:       fpKey,
		cache:       store,
		ttl:         ttl,
		log:         log.With().Str("component", "projections").Logger(),
	}
}

// ForPlayers returns projections for the requested player IDs, keyed by ID.
// Players with no projection from either source are absent from the result.
func (s *Service) ForPlayers(ctx context.Context, playerIDs []string, week int, season string) (map[string]Projection, error) {
	out := make(map[string]Projection, len(playerIDs))

	espn, err := s.fetch(ctx, s.espn, "espn", week, season)
	if err != nil {
		s.log.Warn().Err(err).Msg("espn projections unavailable")
	}
	for _, id := range playerIDs {
		if p, ok := espn[id]; ok {
			out[id] = p
		}
	}

	if s.fpKey != "" && len(out) < len(playerIDs) {
		fp, err := s.fetch(ctx, s.fantasyPros, "fantasypros", week, season)
		if err != nil {
			s.log.Warn().Err(err).Msg("fantasypros projections unavailable")
		}
		for _, id := range playerIDs {
			if _, have := out[id]; have {
				continue
			}
			if p, ok := fp[id]; ok {
				out[id] = p
			}
		}
	}

	s.log.Debug().
		Int("requested", len(playerIDs)).
		Int("projected", len(out)).
		Int("week", week).
		Msg("projections resolved")
	return out, nil
}

// wireResponse is the shared shape of both projection feeds.
type wireResponse struct {
	Players []Projection `json:"players"`
}

func (s *Service) fetch(ctx context.Context, client *httpx.Client, source string, week int, season string) (map[string]Projection, error) {
	key := fmt.Sprintf("proj:%s:%s:w%d", source, season, week)
	q := url.Values{
		"week":   {strconv.Itoa(week)},
		"season": {season},
	}
	payload, err := s.cache.GetOrFetch(ctx, key, s.ttl, func(ctx context.Context) ([]byte, error) {
		return client.Get(ctx, "/projections", q)
	})
	if err != nil {
		return nil, err
	}

	var resp wireResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("projections: decode %s: %w", source, err)
	}

	byID := make(map[string]Projection, len(resp.Players))
	for _, p := range resp.Players {
		p.Source = source
		p.Week = week
		byID[p.PlayerID] = p
	}
	return byID, nil
}
