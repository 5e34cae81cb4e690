package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/qninhdt/grandline-rpg/server/internal/agents"
	"github.com/qninhdt/grandline-rpg/server/internal/api"
	"github.com/qninhdt/grandline-rpg/server/internal/config"
	"github.com/qninhdt/grandline-rpg/server/internal/db"
	"github.com/qninhdt/grandline-rpg/server/internal/game"
	mw "github.com/qninhdt/grandline-rpg/server/internal/middleware"
	"github.com/qninhdt/grandline-rpg/server/internal/rules"
	"github.com/qninhdt/grandline-rpg/server/internal/telemetry"
)

func main() {
	// a missing .env is fine; the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := telemetry.Setup(ctx, "grandline-rpg", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	roster, err := game.LoadRoster(cfg.RosterPath)
	if err != nil {
		return err
	}

	endRules, err := rules.Compile(cfg.GameOverRules)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	oracle, closeOracle, err := openOracle(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeOracle()
	if !oracle.Configured() {
		log.Printf("No API key for oracle %q; turns will narrate the critical-error fallback", cfg.OracleProvider)
	}

	narrator := agents.NewNarrator(oracle, agents.NarratorOptions{
		Language: cfg.Language,
		Timeout:  cfg.OracleTimeout,
	})

	if cfg.GMSecret == "" {
		log.Printf("GM_SECRET is not set; game master login is disabled")
	}

	server := api.NewServer(api.Options{
		Roster:        roster,
		Resolver:      narrator,
		Store:         store,
		EndRule:       game.EndRuleFrom(endRules),
		Auth:          mw.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL),
		GMSecret:      cfg.GMSecret,
		PlayerSecrets: cfg.PlayerSecrets,
		RateLimit:     cfg.RateLimit,
		RateBurst:     cfg.RateBurst,
		MaxBodyBytes:  cfg.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s (store=%s, oracle=%s, roster=%d slots, rules=%d)",
			httpServer.Addr, cfg.StoreBackend, cfg.OracleProvider, roster.Size(), endRules.Len())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openStore(cfg config.Config) (game.SnapshotStore, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return db.NewMemoryStore(), func() {}, nil
	case config.StoreSupabase:
		store, err := db.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		database, err := db.NewDB(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize database: %w", err)
		}
		return database, func() { database.Close() }, nil
	}
}

func openOracle(ctx context.Context, cfg config.Config) (agents.Oracle, func(), error) {
	if cfg.OracleProvider == config.OracleOpenRouter {
		return agents.NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, ""), func() {}, nil
	}
	gemini, err := agents.NewGeminiOracle(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, err
	}
	return gemini, func() { gemini.Close() }, nil
}
