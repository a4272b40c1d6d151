package protocol

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/Artiu/league-voice-backend/domain"
)

// Client to server.
const (
	TypeRequestMatchRoom = "request-match-room"
	TypeSignalingSend    = "signaling-send"
	TypeLeaveRoom        = "leave-room"
)

// Server to client.
const (
	TypeConnected        = "connected"
	TypeConnectError     = "connect-error"
	TypeRoomJoined       = "room-joined"
	TypePeerJoined       = "peer-joined"
	TypePeerLeft         = "peer-left"
	TypeSignalingReceive = "signaling-receive"
)

type Inbound struct {
	Type               string          `json:"type"`
	TargetConnectionID string          `json:"targetConnectionId,omitempty"`
	Payload            json.RawMessage `json:"payload,omitempty"`
}

type Peer struct {
	ConnectionID string `json:"connectionId"`
	IdentityName string `json:"identityName"`
}

func PeerOf(conn domain.Connection) Peer {
	return Peer{ConnectionID: conn.ID(), IdentityName: conn.Identity().Name}
}

type Teammate struct {
	IdentityName string `json:"identityName"`
	TeamID       string `json:"teamId"`
}

type PeerEvent struct {
	Type string `json:"type"`
	Peer
}

type RoomJoined struct {
	Type      string     `json:"type"`
	Teammates []Teammate `json:"teammates,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type SignalingReceive struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	From    Peer            `json:"from"`
}

type ConnectError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func teammates(team []domain.Participant) []Teammate {
	out := make([]Teammate, 0, len(team))
	for _, p := range team {
		out = append(out, Teammate{IdentityName: p.Identity.Name, TeamID: p.TeamID})
	}
	return out
}

// Encode marshals a server event without HTML escaping, so relayed
// payloads keep their characters. A failure is logged and yields nil.
func Encode(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("marshal error", "error", err)
		return nil
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

func send(conn domain.Connection, v any) {
	data := Encode(v)
	if data == nil {
		return
	}
	if err := conn.Send(data); err != nil {
		dropSlow(conn, err)
	}
}

// dropSlow closes a connection that cannot keep up. Its disconnect then
// runs through the usual path and notifies its rooms.
func dropSlow(conn domain.Connection, err error) {
	slog.Warn("send failed, closing connection", "connectionId", conn.ID(), "error", err)
	conn.Close()
}

// RejectEvent tells a client why its handshake failed.
func RejectEvent(reason string) []byte {
	return Encode(ConnectError{Type: TypeConnectError, Reason: reason})
}
