package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artiu/league-voice-backend/domain"
)

// blockingHandler holds the first message until release is closed.
type blockingHandler struct {
	mu      sync.Mutex
	log     []string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (h *blockingHandler) Handle(domain.Connection, []byte) {
	h.once.Do(func() { close(h.entered) })
	<-h.release
	h.record("handled")
}

func (h *blockingHandler) record(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log = append(h.log, event)
}

func (h *blockingHandler) events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.log...)
}

func TestConn_DisconnectFollowsInFlightEvent(t *testing.T) {
	h := &blockingHandler{entered: make(chan struct{}), release: make(chan struct{})}
	closed := make(chan struct{})

	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		conn := NewConn("c1", ws, h, nil)
		assert.NoError(t, conn.Transition(domain.StateAuthenticated))
		conn.Start(func(domain.Connection) {
			h.record("closed")
			close(closed)
		})
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"request-match-room"}`)))

	select {
	case <-h.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("message never reached the handler")
	}
	require.NoError(t, client.Close())

	assert.Never(t, func() bool { return len(h.events()) > 0 }, 100*time.Millisecond, 10*time.Millisecond,
		"disconnect must wait for the event being handled")

	close(h.release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect never ran")
	}
	assert.Equal(t, []string{"handled", "closed"}, h.events())
}
