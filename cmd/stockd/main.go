package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"stockx/internal/application/port"
	"stockx/internal/application/service"
	"stockx/internal/infrastructure/config"
	"stockx/internal/infrastructure/events/composite"
	redisevents "stockx/internal/infrastructure/events/redis"
	"stockx/internal/infrastructure/logger"
	"stockx/internal/infrastructure/storage/memory"
	"stockx/internal/infrastructure/storage/postgres"
	"stockx/internal/infrastructure/storage/sqlite"
	"stockx/internal/interfaces/tcp"
	"stockx/internal/interfaces/wsfeed"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "", "path to config.toml (optional)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("open store failed")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("close store failed")
		}
	}()

	if err := service.SeedDefaultUser(ctx, store, cfg.StartingBalance()); err != nil {
		log.Fatal().Err(err).Msg("seed default user failed")
	}

	var pubs []port.TradePublisher
	if cfg.Events.Redis.Enabled {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Events.Redis.Addr})
		pubs = append(pubs, redisevents.New(rdb, cfg.Events.Redis.Stream, cfg.Events.Redis.Channel))
		log.Info().Str("addr", cfg.Events.Redis.Addr).Str("stream", cfg.Events.Redis.Stream).Msg("redis trade events enabled")
	}
	if cfg.Events.WsFeed.Enabled {
		feed := wsfeed.New(cfg.Events.WsFeed.Addr)
		feed.Start()
		defer feed.Close()
		pubs = append(pubs, feed)
	}
	var events port.TradePublisher = service.NewNoopPublisher()
	if len(pubs) > 0 {
		events = composite.New(pubs...)
	}

	engine := service.NewEngine(store, events)
	srv := tcp.NewServer(tcp.ServerDeps{
		Engine:        engine,
		ListenAddr:    cfg.Server.ListenAddr,
		ReadTimeout:   cfg.ReadTimeout(),
		ShutdownGrace: cfg.ShutdownGrace(),
	})

	log.Info().
		Str("addr", cfg.Server.ListenAddr).
		Str("backend", cfg.Storage.Backend).
		Msg("stockd started")

	if err := srv.ListenAndServe(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
	}
}

func openStore(cfg *config.Config) (port.LedgerStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		return sqlite.New(cfg.Storage.SQLitePath)
	case config.BackendPostgres:
		return postgres.New(cfg.Storage.PostgresDSN)
	case config.BackendMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
