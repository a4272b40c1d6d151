package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Artiu/league-voice-backend/config"
	"github.com/Artiu/league-voice-backend/directory"
	"github.com/Artiu/league-voice-backend/gateway"
	"github.com/Artiu/league-voice-backend/hub"
	"github.com/Artiu/league-voice-backend/metrics"
	"github.com/Artiu/league-voice-backend/protocol"
	"github.com/Artiu/league-voice-backend/ratelimit"
	"github.com/Artiu/league-voice-backend/release"
	ws "github.com/Artiu/league-voice-backend/websocket"
)

const sweepInterval = time.Minute

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authLimiter, matchLimiter, closeLimiters := newLimiters(ctx, cfg)
	defer closeLimiters()

	dir := directory.NewRiot(directory.RiotConfig{
		BaseURL:   cfg.RiotBaseURL,
		APIKey:    cfg.RiotAPIKey,
		CacheSize: cfg.IdentityCacheSize,
		CacheTTL:  cfg.IdentityCacheTTL,
	}, nil)

	presence := hub.New()
	m := metrics.New()
	coordinator := protocol.NewCoordinator(presence, dir, matchLimiter, m)
	handler := protocol.NewHandler(coordinator, protocol.NewRelay(presence, m))

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewServer(ws.ServerConfig{
		Gateway:        gateway.New(authLimiter, dir, m),
		Coordinator:    coordinator,
		Handler:        handler,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
		MessageRate:    cfg.MessageRate,
		MessageBurst:   cfg.MessageBurst,
	}))
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /stats", statsHandler(presence))
	mux.Handle("GET /metrics", m.Handler())
	mux.Handle("GET /releases/{version}", release.NewHandler(release.Info{
		Version:   cfg.Release.Version,
		URL:       cfg.Release.URL,
		Notes:     cfg.Release.Notes,
		Signature: cfg.Release.Signature,
	}, os.DirFS(cfg.Release.Dir)))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "rateLimitBackend", cfg.LimitBackend)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(name string) {
	level := slog.LevelInfo
	switch name {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// newLimiters builds the handshake and match-join limiters for the
// configured backend. In-memory limiters are swept until ctx is done.
func newLimiters(ctx context.Context, cfg *config.Config) (auth, match ratelimit.Limiter, closeFn func()) {
	if cfg.LimitBackend == config.BackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, rate limits will fail open", "addr", cfg.RedisAddr, "error", err)
		}
		return ratelimit.NewRedis(client, "auth", cfg.AuthLimit),
			ratelimit.NewRedis(client, "match", cfg.MatchLimit),
			func() { client.Close() }
	}

	authWindow := ratelimit.NewWindow(nil, cfg.AuthLimit)
	matchWindow := ratelimit.NewWindow(nil, cfg.MatchLimit)
	go authWindow.RunSweeper(ctx, sweepInterval)
	go matchWindow.RunSweeper(ctx, sweepInterval)
	return authWindow, matchWindow, func() {}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statsHandler(presence *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, clients := presence.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"rooms": rooms, "clients": clients})
	}
}
