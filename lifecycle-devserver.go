package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	lifecyclegin "github.com/PaulFidika/signuplifecycle/adapters/gin"
	"github.com/PaulFidika/signuplifecycle/core"
	"github.com/PaulFidika/signuplifecycle/riverjobs"
	memorystore "github.com/PaulFidika/signuplifecycle/storage/memory"
	pgstore "github.com/PaulFidika/signuplifecycle/storage/postgres"
	pgmigrations "github.com/PaulFidika/signuplifecycle/storage/postgres/migrations"
	redisstore "github.com/PaulFidika/signuplifecycle/storage/redis"
	"github.com/caarlos0/env/v10"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	log "github.com/sirupsen/logrus"
)

type config struct {
	ListenAddr     string `env:"LIFECYCLE_LISTEN_ADDR" envDefault:":8080"`
	DBURL          string `env:"DB_URL"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisURL       string `env:"REDIS_URL"`
	Cron           string `env:"LIFECYCLE_CRON" envDefault:"0 3 * * *"`
	Timezone       string `env:"LIFECYCLE_TIMEZONE" envDefault:"Local"`
	PolicyFile     string `env:"LIFECYCLE_POLICY_FILE"`
	AdminToken     string `env:"LIFECYCLE_ADMIN_TOKEN"`
	MigrateOnStart bool   `env:"LIFECYCLE_MIGRATE_ON_START" envDefault:"true"`
	RunOnStart     bool   `env:"LIFECYCLE_RUN_ON_START" envDefault:"false"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON        bool   `env:"LOG_JSON" envDefault:"false"`

	location *time.Location
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fatal(err)
	}

	cmd := "serve"
	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) != "" {
		cmd = strings.TrimSpace(os.Args[1])
	}

	switch cmd {
	case "serve":
		if err := runServe(cfg); err != nil {
			fatal(err)
		}
	case "migrate":
		if err := runMigrate(cfg); err != nil {
			fatal(err)
		}
	default:
		fatal(fmt.Errorf("unknown command %q (supported: serve, migrate)", cmd))
	}
}

func loadConfig() (*config, error) {
	c := &config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if c.DBURL == "" {
		c.DBURL = c.DatabaseURL
	}
	if c.DBURL == "" {
		return nil, fmt.Errorf("DB_URL (or DATABASE_URL) is required")
	}
	if _, err := riverjobs.ParseSchedule(c.Cron); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("LIFECYCLE_TIMEZONE: %w", err)
	}
	c.location = loc

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	if c.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	return c, nil
}

func runServe(cfg *config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := runMigrations(ctx, cfg.DBURL); err != nil {
			return err
		}
	}

	pg, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	store := pgstore.New(pg)

	var policy core.ConfigSource = store.Settings(core.SettingsNamespace, cfg.location)
	if cfg.PolicyFile != "" {
		policy = core.FileConfigSource{Path: cfg.PolicyFile, Location: cfg.location}
	}

	logger := log.WithField("component", "signuplifecycle")
	sinks := core.MultiSink{core.LogSink{Log: logger}}
	var events core.EventReader
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		stream := redisstore.NewEventStream(rdb, "")
		sinks = append(sinks, stream)
		events = stream
	} else {
		// Recent events are only kept for the lifetime of this process.
		local := memorystore.NewEventLog()
		sinks = append(sinks, local)
		events = local
	}

	svc := core.NewService(store, policy).
		WithProfileFields(store).
		WithUserLister(store).
		WithEventSink(sinks).
		WithMetrics(core.NewMetrics(prometheus.DefaultRegisterer)).
		WithLogger(logger)

	workers := river.NewWorkers()
	riverjobs.RegisterProcessLifecycleWorker(workers, svc)
	rc, err := river.NewClient(riverpgxv5.New(pg), &river.Config{
		Queues:  map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: 1}},
		Workers: workers,
	})
	if err != nil {
		return fmt.Errorf("river client: %w", err)
	}
	if err := riverjobs.AddProcessLifecyclePeriodicJob(rc, cfg.Cron, cfg.RunOnStart); err != nil {
		return err
	}
	if err := rc.Start(ctx); err != nil {
		return fmt.Errorf("start river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := rc.Stop(stopCtx); err != nil {
			logger.WithError(err).Warn("river did not stop cleanly")
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	lifecyclegin.NewService(svc).
		WithRedis(rdb).
		WithEvents(events).
		WithAdminToken(cfg.AdminToken).
		GinRegisterAPI(r.Group("/api/v1"))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	logger.WithFields(log.Fields{"addr": cfg.ListenAddr, "cron": cfg.Cron, "timezone": cfg.location.String()}).Info("lifecycle server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runMigrate(cfg *config) error {
	ctx := context.Background()
	return runMigrations(ctx, cfg.DBURL)
}

func runMigrations(ctx context.Context, dbURL string) error {
	sqlDB, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open sql db: %w", err)
	}
	defer sqlDB.Close()

	// Sessions use gen_random_uuid.
	if _, err := sqlDB.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS pgcrypto`); err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}

	files, err := fs.Glob(pgmigrations.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no postgres migrations found")
	}
	sort.Strings(files)

	for _, name := range files {
		sqlBytes, err := pgmigrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(sqlBytes)) == "" {
			continue
		}
		if _, err := sqlDB.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	pg, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	migrator, err := rivermigrate.New(riverpgxv5.New(pg), nil)
	if err != nil {
		return fmt.Errorf("river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("apply river migrations: %w", err)
	}
	return nil
}

func fatal(err error) {
	if err == nil {
		os.Exit(0)
	}
	if errors.Is(err, http.ErrServerClosed) {
		os.Exit(0)
	}
	log.WithError(err).Error("signuplifecycle exited")
	os.Exit(1)
}
