package protocol

import (
	"encoding/json"
	"log/slog"

	"github.com/Artiu/league-voice-backend/domain"
)

// Handler dispatches decoded client events. The transport calls Handle for
// one connection at a time, in arrival order.
type Handler struct {
	coordinator *Coordinator
	relay       *Relay
}

func NewHandler(c *Coordinator, r *Relay) *Handler {
	return &Handler{coordinator: c, relay: r}
}

func (h *Handler) Handle(conn domain.Connection, data []byte) {
	switch conn.State() {
	case domain.StateAuthenticated, domain.StateInRoom:
	default:
		slog.Warn("event before authentication", "connectionId", conn.ID(), "state", conn.State())
		return
	}

	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("invalid message", "connectionId", conn.ID(), "error", err)
		return
	}

	switch msg.Type {
	case TypeRequestMatchRoom:
		if _, err := h.coordinator.RequestMatchRoom(conn); err != nil {
			slog.Debug("match room not joined", "connectionId", conn.ID(), "error", err)
		}
	case TypeSignalingSend:
		_ = h.relay.Relay(conn, msg.TargetConnectionID, msg.Payload)
	case TypeLeaveRoom:
		h.coordinator.LeaveCurrentRooms(conn)
	default:
		slog.Warn("unknown message type", "connectionId", conn.ID(), "type", msg.Type)
	}
}
