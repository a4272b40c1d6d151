package protocol

import (
	"encoding/json"
	"log/slog"

	"github.com/Artiu/league-voice-backend/domain"
	"github.com/Artiu/league-voice-backend/metrics"
)

// Relay forwards signaling payloads between members of a shared room.
type Relay struct {
	registry domain.Registry
	metrics  *metrics.Metrics
}

func NewRelay(registry domain.Registry, m *metrics.Metrics) *Relay {
	return &Relay{registry: registry, metrics: m}
}

// Relay delivers payload untouched to targetID only. Targets outside the
// sender's rooms are dropped with ErrRelayUnauthorized, which is never
// reported back to the sender.
func (r *Relay) Relay(sender domain.Connection, targetID string, payload json.RawMessage) error {
	target, ok := r.registry.Peer(sender.ID(), targetID)
	if !ok {
		r.metrics.Relayed(metrics.Dropped)
		slog.Debug("signaling dropped", "connectionId", sender.ID(), "target", targetID)
		return domain.ErrRelayUnauthorized
	}

	data := Encode(SignalingReceive{Type: TypeSignalingReceive, Payload: payload, From: PeerOf(sender)})
	if err := target.Send(data); err != nil {
		r.metrics.Relayed(metrics.Failed)
		dropSlow(target, err)
		return err
	}
	r.metrics.Relayed(metrics.Delivered)
	return nil
}
