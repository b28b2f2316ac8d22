// Command mockbank is a self-contained demo banking backend for local
// development: a token endpoint speaking both credential shapes, a
// runtime config document, and the versioned domain API with seeded
// fixtures.
//
// Usage:
//
//	mockbank -addr :8480 -db mockbank.db
//
// Demo logins: user "demo" / password "demo123", api key "demo-api-key".
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	addr := flag.String("addr", ":8480", "listen address")
	dbPath := flag.String("db", "mockbank.db", "sqlite database path")
	secret := flag.String("jwt-secret", "", "JWT signing secret (default: MOCKBANK_JWT_SECRET or a dev default)")
	environment := flag.String("environment", "development", "environment reported by /config.json")
	apiURL := flag.String("api-url", "/", "apiUrl reported by /config.json")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	signingKey := *secret
	if signingKey == "" {
		signingKey = os.Getenv("MOCKBANK_JWT_SECRET")
	}
	if signingKey == "" {
		signingKey = "mockbank-dev-secret"
		log.Warn("using built-in dev JWT secret, set MOCKBANK_JWT_SECRET for anything shared")
	}

	db, err := gorm.Open(sqlite.Open(*dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Error("opening database failed", "path", *dbPath, "err", err)
		os.Exit(1)
	}
	if err := AutoMigrate(db); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}
	if err := Seed(db); err != nil {
		log.Error("seeding fixtures failed", "err", err)
		os.Exit(1)
	}

	server := NewServer(db, signingKey, *environment, *apiURL, log)
	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("mockbank listening", "addr", *addr, "db", *dbPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", "err", err)
	}
}
