// Package directory resolves player identities and their live matches.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Artiu/league-voice-backend/domain"
)

const defaultTimeout = 5 * time.Second

type RiotConfig struct {
	BaseURL   string
	APIKey    string
	CacheSize int
	CacheTTL  time.Duration
}

// Riot talks to the summoner and spectator endpoints of the Riot Games API.
// Successful identity lookups are cached; match lookups never are.
type Riot struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *expirable.LRU[string, domain.Identity]
}

func NewRiot(cfg RiotConfig, client *http.Client) *Riot {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	r := &Riot{baseURL: cfg.BaseURL, apiKey: cfg.APIKey, http: client}
	if cfg.CacheSize > 0 {
		r.cache = expirable.NewLRU[string, domain.Identity](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return r
}

type summoner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type activeGame struct {
	GameID       int64 `json:"gameId"`
	Participants []struct {
		SummonerID   string `json:"summonerId"`
		SummonerName string `json:"summonerName"`
		TeamID       int    `json:"teamId"`
	} `json:"participants"`
}

func (r *Riot) ResolveIdentity(ctx context.Context, credential string) (*domain.Identity, error) {
	if r.cache != nil {
		if id, ok := r.cache.Get(credential); ok {
			return &id, nil
		}
	}

	var s summoner
	found, err := r.get(ctx, "/lol/summoner/v4/summoners/by-name/"+url.PathEscape(credential), &s)
	if err != nil || !found {
		return nil, err
	}
	if s.ID == "" {
		return nil, nil
	}

	id := domain.Identity{Key: s.ID, Name: s.Name}
	if r.cache != nil {
		r.cache.Add(credential, id)
	}
	return &id, nil
}

func (r *Riot) CurrentMatch(ctx context.Context, id domain.Identity) (*domain.Match, error) {
	var g activeGame
	found, err := r.get(ctx, "/lol/spectator/v4/active-games/by-summoner/"+url.PathEscape(id.Key), &g)
	if err != nil || !found {
		return nil, err
	}

	m := &domain.Match{ID: strconv.FormatInt(g.GameID, 10)}
	for _, p := range g.Participants {
		m.Participants = append(m.Participants, domain.Participant{
			Identity: domain.Identity{Key: p.SummonerID, Name: p.SummonerName},
			TeamID:   strconv.Itoa(p.TeamID),
		})
	}
	return m, nil
}

// get decodes a 200 response into out. A 404 reports found=false with no
// error; any other status is an error.
func (r *Riot) get(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("X-Riot-Token", r.apiKey)

	resp, err := r.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("riot api: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("riot api: %s returned %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("riot api: decode %s: %w", path, err)
	}
	return true, nil
}
