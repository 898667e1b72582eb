package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"

	"github.com/dukerupert/alojadmin/internal/calendar"
	"github.com/dukerupert/alojadmin/internal/config"
	"github.com/dukerupert/alojadmin/internal/database"
	"github.com/dukerupert/alojadmin/internal/gateway"
	"github.com/dukerupert/alojadmin/internal/logging"
	"github.com/dukerupert/alojadmin/internal/reservation"
	"github.com/dukerupert/alojadmin/internal/server"
	"github.com/dukerupert/alojadmin/internal/session"
	"github.com/dukerupert/alojadmin/internal/store"
	"github.com/dukerupert/alojadmin/internal/vault"
	ws "github.com/dukerupert/alojadmin/internal/websocket"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML, TOML or JSON config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	box, err := openVault(store.NewSettingsStore(db), cfg.TokenSecret, logger)
	if err != nil {
		logger.Error("failed to open credential vault", "error", err)
		os.Exit(1)
	}

	gw := gateway.NewClient(gateway.Config{
		BaseURL: cfg.GatewayURL,
		Timeout: cfg.GatewayTimeout,
	}, logger.With("component", "gateway"))

	sessions := session.NewManager(store.NewSessionStore(db), box, cfg.SessionTTL, logger.With("component", "session"))
	hub := ws.NewHub(logger.With("component", "websocket"))

	svc := calendar.NewService(
		gw,
		reservation.NewNormalizer(cfg.Location()),
		hub,
		store.NewActivityStore(db),
		logger,
	)

	srv := server.New(db, gw, sessions, svc, hub, server.Options{
		CookieSecure:   cfg.CookieSecure,
		OriginPatterns: cfg.OriginPatterns,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := calendar.NewScheduler(svc, sessions, hub, cfg.RefreshSchedule, logger, srv.RateLimiter())
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	// Clear sessions that expired while the server was down.
	sched.Sweep()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.GatewayTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("alojadmin starting", "addr", httpServer.Addr, "gateway", cfg.GatewayURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	sched.Stop()
}

// openVault builds the credential vault from the configured secret and the
// salt stored in settings. Without a secret a random one is used, so sessions
// do not survive a restart.
func openVault(settings *store.SettingsStore, secret string, logger *slog.Logger) (*vault.Box, error) {
	encoded, err := settings.GetOrCreate(store.VaultSaltKey, func() (string, error) {
		salt, err := vault.GenerateSalt()
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(salt), nil
	})
	if err != nil {
		return nil, fmt.Errorf("load vault salt: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode vault salt: %w", err)
	}

	if secret == "" {
		logger.Warn("ALOJADMIN_TOKEN_SECRET not set, using an ephemeral key; sessions end on restart")
		secret, err = vault.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
	}
	return vault.New(secret, salt)
}
