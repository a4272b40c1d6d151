package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Artiu/league-voice-backend/domain"
	"github.com/Artiu/league-voice-backend/metrics"
	"github.com/Artiu/league-voice-backend/ratelimit"
)

// Coordinator places connections into the room of their current match
// team and tells the other members about arrivals and departures.
type Coordinator struct {
	registry  domain.Registry
	directory domain.Directory
	limiter   ratelimit.Limiter
	metrics   *metrics.Metrics
}

func NewCoordinator(registry domain.Registry, directory domain.Directory, limiter ratelimit.Limiter, m *metrics.Metrics) *Coordinator {
	return &Coordinator{registry: registry, directory: directory, limiter: limiter, metrics: m}
}

// Connect registers an authenticated connection and acknowledges it.
func (c *Coordinator) Connect(conn domain.Connection) error {
	if err := conn.Transition(domain.StateAuthenticated); err != nil {
		return err
	}
	c.registry.Register(conn)
	c.metrics.Presence(c.registry.Stats())
	send(conn, PeerEvent{Type: TypeConnected, Peer: PeerOf(conn)})
	return nil
}

// Disconnect removes the connection from the registry and notifies every
// room it was in. Rate limit state keyed by the connection id is released.
// The transport calls it after the connection's last event has been handled.
func (c *Coordinator) Disconnect(conn domain.Connection) {
	_ = conn.Transition(domain.StateDisconnected)
	for _, d := range c.registry.Unregister(conn.ID()) {
		c.notifyLeft(conn, d.Remaining)
	}
	c.limiter.Release(context.Background(), conn.ID())
	c.metrics.Presence(c.registry.Stats())
}

// LeaveCurrentRooms takes the connection out of every room it occupies.
func (c *Coordinator) LeaveCurrentRooms(conn domain.Connection) {
	left := false
	for _, key := range c.registry.RoomsOf(conn.ID()) {
		remaining, ok := c.registry.Leave(conn.ID(), key)
		if !ok {
			continue
		}
		left = true
		c.notifyLeft(conn, remaining)
	}
	if left {
		_ = conn.Transition(domain.StateAuthenticated)
		c.metrics.Presence(c.registry.Stats())
	}
}

// RequestMatchRoom moves the connection into the room of its current match
// team. It returns the teammates on success. Rate limited, matchless and
// cancelled requests return an error the caller is expected to swallow;
// ErrDuplicateIdentity has already been reported to the client.
func (c *Coordinator) RequestMatchRoom(conn domain.Connection) ([]domain.Participant, error) {
	ctx := conn.Context()
	if !c.limiter.Allow(ctx, conn.ID()) {
		c.metrics.MatchRequest(metrics.Limited)
		return nil, domain.ErrRateLimited
	}

	c.LeaveCurrentRooms(conn)

	identity := conn.Identity()
	match, err := c.directory.CurrentMatch(ctx, identity)
	if ctx.Err() != nil {
		c.metrics.MatchRequest(metrics.Discarded)
		return nil, ctx.Err()
	}
	if err != nil {
		c.metrics.MatchRequest(metrics.Failed)
		slog.Warn("match lookup failed", "connectionId", conn.ID(), "identity", identity.Name, "error", err)
		return nil, fmt.Errorf("current match: %w", err)
	}
	if match == nil {
		c.metrics.MatchRequest(metrics.NoMatch)
		return nil, domain.ErrNoActiveMatch
	}

	teamID, ok := match.TeamOf(identity)
	if !ok {
		c.metrics.MatchRequest(metrics.Failed)
		slog.Error("directory inconsistency", "connectionId", conn.ID(), "identity", identity.Name, "match", match.ID)
		return nil, domain.ErrDirectoryInconsistency
	}
	key := domain.NewRoomKey(match.ID, teamID)
	team := match.Team(teamID)

	// The lookup above may have taken a while; Join re-reads live state and
	// refuses connections that have since gone away.
	others, err := c.registry.Join(conn.ID(), key)
	switch {
	case errors.Is(err, domain.ErrDuplicateIdentity):
		c.metrics.MatchRequest(metrics.Duplicate)
		send(conn, RoomJoined{Type: TypeRoomJoined, Error: domain.ErrorAccountInRoom})
		return nil, err
	case errors.Is(err, domain.ErrNotConnected):
		c.metrics.MatchRequest(metrics.Discarded)
		return nil, err
	case err != nil:
		c.metrics.MatchRequest(metrics.Failed)
		slog.Warn("join failed", "connectionId", conn.ID(), "room", key, "error", err)
		return nil, err
	}

	// A disconnect that ran after Join has already unregistered the
	// connection and told the room; nothing may follow its peer-left.
	if err := conn.Transition(domain.StateInRoom); err != nil {
		c.metrics.MatchRequest(metrics.Discarded)
		return nil, domain.ErrNotConnected
	}
	c.metrics.MatchRequest(metrics.Joined)
	c.metrics.Presence(c.registry.Stats())

	send(conn, RoomJoined{Type: TypeRoomJoined, Teammates: teammates(team)})
	joined := PeerEvent{Type: TypePeerJoined, Peer: PeerOf(conn)}
	for _, m := range others {
		send(m.Conn, joined)
	}
	return team, nil
}

func (c *Coordinator) notifyLeft(conn domain.Connection, remaining []domain.Member) {
	event := PeerEvent{Type: TypePeerLeft, Peer: PeerOf(conn)}
	for _, m := range remaining {
		send(m.Conn, event)
	}
}
