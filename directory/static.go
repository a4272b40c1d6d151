package directory

import (
	"context"
	"sync"

	"github.com/Artiu/league-voice-backend/domain"
)

// Static is an in-memory directory for local runs and tests.
type Static struct {
	mu         sync.RWMutex
	identities map[string]domain.Identity
	matches    map[string]*domain.Match
}

func NewStatic() *Static {
	return &Static{
		identities: make(map[string]domain.Identity),
		matches:    make(map[string]*domain.Match),
	}
}

// AddIdentity makes credential resolve to id.
func (s *Static) AddIdentity(credential string, id domain.Identity) {
	s.mu.Lock()
	s.identities[credential] = id
	s.mu.Unlock()
}

// SetMatch places every participant of m into it. Passing a match with no
// participants is a no-op.
func (s *Static) SetMatch(m *domain.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range m.Participants {
		s.matches[p.Identity.Key] = m
	}
}

// EndMatch removes the identity from whatever match it was in.
func (s *Static) EndMatch(id domain.Identity) {
	s.mu.Lock()
	delete(s.matches, id.Key)
	s.mu.Unlock()
}

func (s *Static) ResolveIdentity(_ context.Context, credential string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.identities[credential]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (s *Static) CurrentMatch(_ context.Context, id domain.Identity) (*domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matches[id.Key], nil
}
