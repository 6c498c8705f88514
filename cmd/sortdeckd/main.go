// Package main provides the sortdeck daemon entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sortdeck/sortdeck/internal/accounting"
	"github.com/sortdeck/sortdeck/internal/cache"
	"github.com/sortdeck/sortdeck/internal/classify"
	"github.com/sortdeck/sortdeck/internal/config"
	"github.com/sortdeck/sortdeck/internal/provider/embedding"
	"github.com/sortdeck/sortdeck/internal/provider/llm"
	"github.com/sortdeck/sortdeck/internal/store"
	"github.com/sortdeck/sortdeck/internal/web"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", filepath.Join(config.DataDir(), "config.yaml"), "Config file path")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
	}
	if *debug || cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}

	gormLevel := gormlogger.Silent
	if *debug || cfg.Debug {
		gormLevel = gormlogger.Warn
	}
	st, err := store.NewStore(store.Config{Path: cfg.DBPath, LogLevel: gormLevel})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to open database")
	}
	defer st.Close()

	collector := accounting.NewCollector(accounting.Prices{
		EmbeddingUSDPerMTokens: cfg.Embedding.USDPerMTokens,
		InputUSDPerMTokens:     cfg.LLM.InputUSDPerMTokens,
		OutputUSDPerMTokens:    cfg.LLM.OutputUSDPerMTokens,
	})
	embedder := embedding.NewClient(cfg.Embedding, collector)
	completer := llm.NewAnthropic(cfg.LLM, collector)

	var ttlCache cache.Cache
	if cfg.Cache.Backend == "redis" {
		ttlCache = cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisPrefix)
		log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Using Redis cache backend")
	} else {
		ttlCache = cache.NewMemory()
	}

	orch := classify.NewOrchestrator(st, embedder, completer, ttlCache, cfg.Classify)

	watcher, err := config.Watch(*configPath, orch.SetTunables)
	if err != nil {
		log.Warn().Err(err).Msg("Config watcher unavailable, tunable changes need a restart")
	} else {
		defer watcher.Stop()
	}

	svc := web.NewService(Version, st, orch, collector)
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      svc.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Shutdown did not complete cleanly")
		}
	}()

	log.Info().Str("addr", cfg.Addr).Str("version", Version).Msg("Starting sortdeck daemon")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server error")
	}
}
