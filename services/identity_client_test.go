package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityStub is an in-memory identity service with one project.
type identityStub struct {
	mu         sync.Mutex
	project    string
	createSeen int
	conflict   bool
	profiles   map[string]bool
	badges     map[string][]int
	stats      map[string]map[string]int64
}

func newIdentityStub() *identityStub {
	return &identityStub{
		profiles: map[string]bool{},
		badges:   map[string][]int{},
		stats:    map[string]map[string]int64{},
	}
}

func (s *identityStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.project == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeProject(w, s.project, r.URL.Query().Get("name"))
	})
	mux.HandleFunc("POST /projects", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.createSeen++
		if s.conflict {
			s.project = "proj-raced"
			w.WriteHeader(http.StatusConflict)
			return
		}
		s.project = "proj-new"
		w.WriteHeader(http.StatusCreated)
		writeProject(w, s.project, "")
	})
	mux.HandleFunc("GET /projects/{project}/profiles/{wallet}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.profiles[r.PathValue("wallet")] {
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("POST /projects/{project}/profiles", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Wallet string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.profiles[body.Wallet] = true
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /projects/{project}/profiles/{wallet}/badges", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ BadgeIndex int }
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		defer s.mu.Unlock()
		wallet := r.PathValue("wallet")
		for _, b := range s.badges[wallet] {
			if b == body.BadgeIndex {
				w.WriteHeader(http.StatusConflict)
				return
			}
		}
		s.badges[wallet] = append(s.badges[wallet], body.BadgeIndex)
	})
	mux.HandleFunc("POST /projects/{project}/profiles/{wallet}/stats", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Stats map[string]int64 }
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.stats[r.PathValue("wallet")] = body.Stats
	})
	return mux
}

// snapshot reads the stub under its lock.
func (s *identityStub) snapshot(fn func(s *identityStub)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func writeProject(w http.ResponseWriter, address, name string) {
	resp := projectResponse{}
	resp.Project.Address = address
	resp.Project.Name = name
	_ = json.NewEncoder(w).Encode(resp)
}

func TestIdentityClientEnsureProject(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		stub := newIdentityStub()
		stub.project = "proj-existing"
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()

		client := NewIdentityClient(srv.URL, "tok", "Daily Challenges", 3)
		require.NoError(t, client.EnsureProject(context.Background()))
		assert.Equal(t, "proj-existing", client.project)
		stub.snapshot(func(s *identityStub) { assert.Zero(t, s.createSeen) })
	})

	t.Run("absent is created", func(t *testing.T) {
		stub := newIdentityStub()
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()

		client := NewIdentityClient(srv.URL, "tok", "Daily Challenges", 3)
		require.NoError(t, client.EnsureProject(context.Background()))
		assert.Equal(t, "proj-new", client.project)
		stub.snapshot(func(s *identityStub) { assert.Equal(t, 1, s.createSeen) })
	})

	t.Run("create conflict resolves by lookup", func(t *testing.T) {
		stub := newIdentityStub()
		stub.conflict = true
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()

		client := NewIdentityClient(srv.URL, "tok", "Daily Challenges", 3)
		require.NoError(t, client.EnsureProject(context.Background()))
		assert.Equal(t, "proj-raced", client.project)
	})

	t.Run("server down", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewIdentityClient(srv.URL, "tok", "Daily Challenges", 3)
		err := client.EnsureProject(context.Background())
		assert.ErrorIs(t, err, ErrExternalService)
	})
}

func TestIdentityClientProfileUpdates(t *testing.T) {
	stub := newIdentityStub()
	stub.project = "proj-1"
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := NewIdentityClient(srv.URL, "tok", "Daily Challenges", 3)
	ctx := context.Background()
	require.NoError(t, client.EnsureProject(ctx))

	require.NoError(t, client.EnsureProfile(ctx, "wallet-1"))
	require.NoError(t, client.EnsureProfile(ctx, "wallet-1"))
	stub.snapshot(func(s *identityStub) { assert.True(t, s.profiles["wallet-1"]) })

	require.NoError(t, client.AwardBadge(ctx, "wallet-1", 2))
	require.NoError(t, client.AwardBadge(ctx, "wallet-1", 2), "duplicate badge is not an error")
	stub.snapshot(func(s *identityStub) { assert.Equal(t, []int{2}, s.badges["wallet-1"]) })

	require.NoError(t, client.UpdateStats(ctx, "wallet-1", map[string]int64{"daily_points_claimed": 90}))
	stub.snapshot(func(s *identityStub) {
		assert.Equal(t, map[string]int64{"daily_points_claimed": 90}, s.stats["wallet-1"])
	})
}
