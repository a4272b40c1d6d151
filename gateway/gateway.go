// Package gateway authenticates connections at handshake time.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"unicode"

	"github.com/Artiu/league-voice-backend/domain"
	"github.com/Artiu/league-voice-backend/metrics"
	"github.com/Artiu/league-voice-backend/ratelimit"
)

// CredentialParam is the handshake query parameter carrying the account name.
const CredentialParam = "summonerName"

const maxCredentialLen = 64

type Gateway struct {
	limiter   ratelimit.Limiter
	directory domain.Directory
	metrics   *metrics.Metrics
}

func New(limiter ratelimit.Limiter, directory domain.Directory, m *metrics.Metrics) *Gateway {
	return &Gateway{limiter: limiter, directory: directory, metrics: m}
}

// Authenticate resolves credential to an Identity. One auth point is spent
// per attempt against sourceKey before anything else happens, so a limited
// source never reaches the directory.
func (g *Gateway) Authenticate(ctx context.Context, sourceKey, credential string) (domain.Identity, error) {
	id, err := g.authenticate(ctx, sourceKey, credential)
	if err != nil {
		reason := domain.RejectReason(err)
		g.metrics.Rejected(reason)
		slog.Debug("handshake rejected", "source", sourceKey, "reason", reason, "error", err)
		return domain.Identity{}, err
	}
	return id, nil
}

func (g *Gateway) authenticate(ctx context.Context, sourceKey, credential string) (domain.Identity, error) {
	if !g.limiter.Allow(ctx, sourceKey) {
		return domain.Identity{}, domain.ErrRateLimited
	}
	if !validCredential(credential) {
		return domain.Identity{}, domain.ErrUnauthorized
	}

	id, err := g.directory.ResolveIdentity(ctx, credential)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if id == nil || id.Key == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return *id, nil
}

func validCredential(c string) bool {
	if strings.TrimSpace(c) == "" || len(c) > maxCredentialLen {
		return false
	}
	return strings.IndexFunc(c, unicode.IsControl) < 0
}

// Credential reads the handshake credential from the request.
func Credential(r *http.Request) string {
	return r.URL.Query().Get(CredentialParam)
}

// SourceKey is the address auth attempts are counted against. Forwarding
// headers are only honoured when the server sits behind a trusted proxy.
func SourceKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-Ip"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
