package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/auth"
	"logistics-platform/internal/config"
	"logistics-platform/internal/httpapi"
	"logistics-platform/internal/logistics"
	"logistics-platform/internal/obs"
	"logistics-platform/internal/policy"
	"logistics-platform/internal/rbac"
	"logistics-platform/pkg/logger"
	"logistics-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const maxBodyBytes = 1 << 20

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := obs.NewMetrics()

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	var (
		repo   audit.Repository
		probes []utils.Check
	)
	switch cfg.Audit.Store {
	case config.AuditStorePostgres:
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := audit.NewPGRepo(db)
		if err := pg.EnsureSchema(rootCtx); err != nil {
			log.Error("audit schema init failed", "err", err)
			os.Exit(1)
		}
		repo = pg
		probes = append(probes, func(ctx context.Context) error { return utils.HealthCheck(ctx, db, 2*time.Second) })
	default:
		log.Warn("audit trail is kept in memory and lost on restart")
		repo = audit.NewMemoryRepo()
	}
	svc := audit.NewService(repo, audit.WithLogger(log), audit.WithObserver(metrics))
	hooks := audit.NewHooks(svc)

	var revoked auth.Revocations = auth.NewMemoryRevocations()
	if cfg.Redis.Host != "" {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		revoked = auth.NewRedisRevocations(rdb)
		probes = append(probes, func(ctx context.Context) error { return utils.RedisHealthCheck(ctx, rdb, time.Second) })
	}

	stores := logistics.NewStores()
	if err := seedAdmin(rootCtx, stores.Users, cfg.Auth); err != nil {
		log.Error("bootstrap admin failed", "err", err)
		os.Exit(1)
	}

	h := &httpapi.Handlers{
		Table:        policy.MustTable(policy.PlatformEndpoints()...),
		Tokens:       tokens,
		Revoked:      revoked,
		Audit:        svc,
		Hooks:        hooks,
		Stores:       stores,
		Dispatch:     &logistics.Dispatch{Stores: stores, Hooks: hooks},
		Counters:     metrics,
		LoginLimiter: httpapi.NewIPLimiter(cfg.Auth.LoginPerMinute, cfg.Auth.LoginBurst),
	}
	if cfg.Auth.ExternalAssertionSecret != "" {
		v, err := auth.NewExternalVerifier(cfg.Auth.ExternalAssertionSecret, cfg.Auth.ExternalIssuer, stores.Users)
		if err != nil {
			log.Error("external login init failed", "err", err)
			os.Exit(1)
		}
		h.External = v
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(log, metrics, h, utils.Checks(probes...)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "audit_store", string(cfg.Audit.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// seedAdmin creates the configured admin account unless the username is taken.
func seedAdmin(ctx context.Context, users *logistics.Users, cfg config.AuthConfig) error {
	if cfg.BootstrapAdmin == "" {
		return nil
	}
	_, err := users.Create(ctx, logistics.User{
		Username: cfg.BootstrapAdmin,
		Role:     rbac.RoleAdmin,
		Active:   true,
	}, cfg.BootstrapAdminPassword)
	if errors.Is(err, logistics.ErrConflict) {
		return nil
	}
	return err
}
