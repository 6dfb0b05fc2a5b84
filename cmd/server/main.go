package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vytor/logicbuild/internal/api"
	"github.com/vytor/logicbuild/internal/config"
	"github.com/vytor/logicbuild/internal/content"
	"github.com/vytor/logicbuild/internal/db"
	"github.com/vytor/logicbuild/internal/events"
	"github.com/vytor/logicbuild/internal/generator"
	"github.com/vytor/logicbuild/internal/logger"
	"github.com/vytor/logicbuild/internal/metrics"
	"github.com/vytor/logicbuild/internal/persistence"
	"github.com/vytor/logicbuild/internal/repository"
	redisstore "github.com/vytor/logicbuild/internal/repository/redis"
	"github.com/vytor/logicbuild/internal/repository/sqlite"
	"github.com/vytor/logicbuild/internal/services"
	"github.com/vytor/logicbuild/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithFormat(logger.ParseFormat(cfg.LogFormat)),
		logger.WithColors(logger.ParseFormat(cfg.LogFormat) == logger.FormatText),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}

	log.Info("===========================================")
	log.Info("LogicBuild Server Starting")
	log.Info("===========================================")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("remote_store=%s", cfg.RemoteStore)
	log.Debug("local_cache_path=%s", cfg.LocalCachePath)
	log.Debug("save_debounce=%v", cfg.SaveDebounce)
	log.Debug("writer_queue_size=%d", cfg.WriterQueueSize)
	log.Debug("generator_enabled=%t", cfg.GeneratorBaseURL != "")
	log.Debug("log_level=%s", cfg.LogLevel)

	localDB, err := db.Open(cfg.LocalCachePath)
	if err != nil {
		log.Error("failed to open local cache: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing local cache")
		localDB.Close()
	}()

	var (
		remote repository.StateStore
		checks []api.HealthCheck
	)
	switch cfg.RemoteStore {
	case config.RemoteStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		store := redisstore.NewStateStore(client)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := store.Ping(pingCtx); err != nil {
			// The local cache carries the game until Redis comes back.
			log.Warn("redis unreachable at %s: %v", cfg.RedisAddr, err)
		}
		pingCancel()
		remote = store
		checks = append(checks, api.HealthCheck{Name: "redis", Check: store.Ping})
	default:
		remoteDB, err := db.Open(cfg.RemoteDBPath)
		if err != nil {
			log.Error("failed to open remote store: %v", err)
			os.Exit(1)
		}
		defer func() {
			log.Debug("closing remote store")
			remoteDB.Close()
		}()
		remote = sqlite.NewStateStore(remoteDB.DB)
		checks = append(checks, api.HealthCheck{Name: "remote_store", Check: remoteDB.PingContext})
	}
	checks = append(checks, api.HealthCheck{Name: "local_cache", Check: localDB.PingContext})

	m := metrics.New()

	// One writer keeps remote saves in submission order.
	writerPool := worker.NewPool(1, cfg.WriterQueueSize)
	ctx, cancel := context.WithCancel(context.Background())
	writerPool.Start(ctx)

	gateway := persistence.New(remote, sqlite.NewKeyValueStore(localDB.DB), writerPool, cfg.SaveDebounce, persistence.WithMetrics(m))

	bank, err := content.DefaultBank()
	if err != nil {
		log.Error("failed to load question bank: %v", err)
		os.Exit(1)
	}
	log.Debug("question bank loaded: %d questions", bank.Size())

	client := generator.New(cfg.GeneratorBaseURL, cfg.GeneratorAPIKey, cfg.GeneratorTimeout,
		generator.WithMaxRetries(cfg.GeneratorMaxRetries))
	if !client.Enabled() {
		log.Info("GENERATOR_BASE_URL not set, serving fallback content only")
	}

	bus := events.NewBus()
	recorder := events.NewRecorder(64)
	bus.Subscribe(recorder.Handle)
	bus.Subscribe(func(e events.Event) {
		switch e.Type {
		case events.LevelCompleted:
			log.Info("level %d/%d completed with %d stars", e.BossID, e.LevelID, e.Stars)
		case events.BossCompleted:
			log.Info("boss %d defeated, badge %q", e.BossID, e.Badge)
		case events.GameCompleted:
			log.Info("game completed at %s", e.Difficulty)
		}
	})

	gameService := services.NewGameService(
		gateway,
		content.NewLoader(client, bank, content.NewTimeRand(), m),
		services.NewEvaluator(client, m),
		bus,
		m,
	)
	source := gameService.Load(logger.NewContext(ctx, log))
	log.Info("game state source: %s", source)

	srv := &api.Server{
		GameService:    gameService,
		Events:         recorder,
		Metrics:        m,
		HealthChecks:   checks,
		RequestTimeout: cfg.GeneratorTimeout * time.Duration(cfg.GeneratorMaxRetries+2),
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: srv.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("flushing pending game state")
	gateway.Flush(logger.NewContext(shutdownCtx, log))

	log.Debug("stopping writer pool")
	writerPool.Stop()
	cancel()

	log.Info("===========================================")
	log.Info("LogicBuild Server Stopped")
	log.Info("===========================================")
}
