// Package sleeper is a read-only client for the Sleeper fantasy API. Every
// lookup goes through the resilient transport and the TTL cache; the full
// player dictionary in particular is large and slow-changing, so it leans on
// the cache's stale-fallback behavior.
package sleeper

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

const BaseURL = "https://api.sleeper.app/v1"

// Client wraps the Sleeper HTTP API.
type Client struct {
	http  *httpx.Client
	cache *cache.Store
	ttl   time.Duration
	log   zerolog.Logger
}

// NewClient builds a Sleeper client. ttl applies to every cached resource.
func NewClient(hc *httpx.Client, store *cache.Store, ttl time.Duration, log zerolog.Logger) *Client {
	return &Client{
		http:  hc,
		cache: store,
		ttl:   ttl,
		log:   log.With().Str("component", "sleeper").Logger(),
	}
}

// User resolves a username to an account.
func (c *Client) User(ctx context.Context, username string) (*User, error) {
	var u User
	key := "sleeper:user:" + username
	if err := c.cached(ctx, key, "/user/"+url.PathEscape(username), nil, &u); err != nil {
		return nil, err
	}
	if u.UserID == "" {
		return nil, fmt.Errorf("sleeper: user %q not found", username)
	}
	return &u, nil
}

// Leagues lists a user's leagues for an NFL season.
func (c *Client) Leagues(ctx context.Context, userID, season string) ([]League, error) {
	var out []League
	key := fmt.Sprintf("sleeper:leagues:%s:%s", userID, season)
	path := fmt.Sprintf("/user/%s/leagues/nfl/%s", userID, season)
	return out, c.cached(ctx, key, path, nil, &out)
}

// League fetches one league's settings and scoring rules.
func (c *Client) League(ctx context.Context, leagueID string) (*League, error) {
	var l League
	key := "sleeper:league:" + leagueID
	if err := c.cached(ctx, key, "/league/"+leagueID, nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Rosters lists every roster in a league.
func (c *Client) Rosters(ctx context.Context, leagueID string) ([]Roster, error) {
	var out []Roster
	key := "sleeper:rosters:" + leagueID
	return out, c.cached(ctx, key, "/league/"+leagueID+"/rosters", nil, &out)
}

// LeagueUsers lists every member of a league.
func (c *Client) LeagueUsers(ctx context.Context, leagueID string) ([]User, error) {
	var out []User
	key := "sleeper:users:" + leagueID
	return out, c.cached(ctx, key, "/league/"+leagueID+"/users", nil, &out)
}

// Matchups lists both sides of every pairing for a week.
func (c *Client) Matchups(ctx context.Context, leagueID string, week int) ([]Matchup, error) {
	var out []Matchup
	key := fmt.Sprintf("sleeper:matchups:%s:w%d", leagueID, week)
	path := fmt.Sprintf("/league/%s/matchups/%d", leagueID, week)
	return out, c.cached(ctx, key, path, nil, &out)
}

// AllPlayers fetches the full NFL player dictionary keyed by player ID.
// This is a multi-megabyte payload; callers should hold on to the result
// for the duration of a run.
func (c *Client) AllPlayers(ctx context.Context) (map[string]Player, error) {
	out := make(map[string]Player)
	if err := c.cached(ctx, "sleeper:players", "/players/nfl", nil, &out); err != nil {
		return nil, err
	}
	// The dictionary keys are the IDs; individual records sometimes omit
	// the player_id field, so backfill it from the key.
	for id, p := range out {
		if p.PlayerID == "" {
			p.PlayerID = id
			out[id] = p
		}
	}
	c.log.Debug().Int("players", len(out)).Msg("player dictionary loaded")
	return out, nil
}

// TrendingAdds lists the most-added players over the lookback window.
func (c *Client) TrendingAdds(ctx context.Context, lookbackHours, limit int) ([]TrendingPlayer, error) {
	var out []TrendingPlayer
	key := fmt.Sprintf("sleeper:trending:%dh:%d", lookbackHours, limit)
	q := url.Values{
		"lookback_hours": {strconv.Itoa(lookbackHours)},
		"limit":          {strconv.Itoa(limit)},
	}
	return out, c.cached(ctx, key, "/players/nfl/trending/add", q, &out)
}

// cached runs a GET through the TTL cache and decodes the payload.
func (c *Client) cached(ctx context.Context, key, path string, query url.Values, out any) error {
	payload, err := c.cache.GetOrFetch(ctx, key, c.ttl, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, path, query)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("sleeper: decode %s: %w", path, err)
	}
	return nil
}
