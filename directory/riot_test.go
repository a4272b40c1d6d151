package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artiu/league-voice-backend/domain"
)

func newRiotServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/lol/summoner/v4/summoners/by-name/{name}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("X-Riot-Token") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.PathValue("name") {
		case "Faker":
			w.Write([]byte(`{"id":"sum-1","name":"Faker","puuid":"p1","summonerLevel":500}`))
		case "Broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/lol/spectator/v4/active-games/by-summoner/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "sum-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"gameId":4021,"participants":[
			{"summonerId":"sum-1","summonerName":"Faker","teamId":100},
			{"summonerId":"sum-2","summonerName":"Keria","teamId":100},
			{"summonerId":"sum-3","summonerName":"Chovy","teamId":200}
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRiot_ResolveIdentity(t *testing.T) {
	var hits atomic.Int32
	srv := newRiotServer(t, &hits)
	riot := NewRiot(RiotConfig{BaseURL: srv.URL, APIKey: "secret", CacheSize: 8, CacheTTL: time.Minute}, nil)
	ctx := context.Background()

	id, err := riot.ResolveIdentity(ctx, "Faker")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, domain.Identity{Key: "sum-1", Name: "Faker"}, *id)

	_, err = riot.ResolveIdentity(ctx, "Faker")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second lookup served from cache")

	id, err = riot.ResolveIdentity(ctx, "Nobody")
	assert.NoError(t, err)
	assert.Nil(t, id)

	id, err = riot.ResolveIdentity(ctx, "Broken")
	assert.Error(t, err)
	assert.Nil(t, id)
}

func TestRiot_BadKeyIsError(t *testing.T) {
	var hits atomic.Int32
	srv := newRiotServer(t, &hits)
	riot := NewRiot(RiotConfig{BaseURL: srv.URL, APIKey: "wrong"}, nil)

	id, err := riot.ResolveIdentity(context.Background(), "Faker")
	assert.Error(t, err)
	assert.Nil(t, id)
}

func TestRiot_CurrentMatch(t *testing.T) {
	var hits atomic.Int32
	srv := newRiotServer(t, &hits)
	riot := NewRiot(RiotConfig{BaseURL: srv.URL, APIKey: "secret"}, nil)
	ctx := context.Background()

	m, err := riot.CurrentMatch(ctx, domain.Identity{Key: "sum-1", Name: "Faker"})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "4021", m.ID)
	require.Len(t, m.Participants, 3)
	assert.Equal(t, "200", m.Participants[2].TeamID)
	assert.Len(t, m.Team("100"), 2)

	m, err = riot.CurrentMatch(ctx, domain.Identity{Key: "sum-9"})
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	s := NewStatic()
	a := domain.Identity{Key: "a", Name: "Alpha"}
	s.AddIdentity("alpha", a)

	id, err := s.ResolveIdentity(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, a, *id)

	id, _ = s.ResolveIdentity(ctx, "beta")
	assert.Nil(t, id)

	m, _ := s.CurrentMatch(ctx, a)
	assert.Nil(t, m)

	s.SetMatch(&domain.Match{ID: "M1", Participants: []domain.Participant{{Identity: a, TeamID: "100"}}})
	m, _ = s.CurrentMatch(ctx, a)
	require.NotNil(t, m)
	assert.Equal(t, "M1", m.ID)

	s.EndMatch(a)
	m, _ = s.CurrentMatch(ctx, a)
	assert.Nil(t, m)
}
