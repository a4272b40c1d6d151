package websocket

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Artiu/league-voice-backend/domain"
	"github.com/Artiu/league-voice-backend/gateway"
	"github.com/Artiu/league-voice-backend/protocol"
)

type ServerConfig struct {
	Gateway     *gateway.Gateway
	Coordinator *protocol.Coordinator
	Handler     domain.MessageHandler

	// AllowedOrigins lists browser origins that may open a socket. Requests
	// without an Origin header come from native clients and are accepted.
	AllowedOrigins []string
	TrustProxy     bool

	// MessageRate and MessageBurst bound inbound frames per connection.
	// A zero rate disables the limit.
	MessageRate  float64
	MessageBurst int
}

// Server upgrades HTTP requests, authenticates them and runs the
// resulting connections.
type Server struct {
	cfg      ServerConfig
	upgrader websocket.Upgrader
}

func NewServer(cfg ServerConfig) *Server {
	s := &Server{cfg: cfg}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade error", "error", err)
		return
	}

	conn := NewConn(uuid.New().String(), ws, s.cfg.Handler, s.messageLimiter())

	sourceKey := gateway.SourceKey(r, s.cfg.TrustProxy)
	identity, err := s.cfg.Gateway.Authenticate(r.Context(), sourceKey, gateway.Credential(r))
	if err != nil {
		conn.reject(domain.RejectReason(err))
		return
	}

	conn.bind(identity)
	if err := s.cfg.Coordinator.Connect(conn); err != nil {
		slog.Error("connect failed", "connectionId", conn.ID(), "error", err)
		conn.reject(domain.ReasonUnauthorized)
		return
	}
	conn.Start(s.cfg.Coordinator.Disconnect)
}

func (s *Server) messageLimiter() *rate.Limiter {
	if s.cfg.MessageRate <= 0 {
		return nil
	}
	burst := s.cfg.MessageBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.cfg.MessageRate), burst)
}
