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

	"golang.org/x/sync/errgroup"

	"masthead/internal/audit"
	authHandler "masthead/internal/auth/handler"
	"masthead/internal/auth/service"
	otpStore "masthead/internal/auth/store/otp"
	roleStore "masthead/internal/auth/store/role"
	userStore "masthead/internal/auth/store/user"
	"masthead/internal/auth/workers/cleanup"
	"masthead/internal/mfa"
	"masthead/internal/platform/config"
	"masthead/internal/platform/database"
	"masthead/internal/platform/health"
	"masthead/internal/platform/logger"
	"masthead/internal/platform/metrics"
	platformRedis "masthead/internal/platform/redis"
	"masthead/internal/ratelimit"
	"masthead/internal/security"
	"masthead/internal/seeder"
	"masthead/internal/token"
	httptransport "masthead/internal/transport/http"
	"masthead/migrations"
)

// main wires dependencies and owns the process lifecycle. Business
// logic lives under internal; nothing here should grow beyond plumbing.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing masthead",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"database", cfg.DatabaseURL != "",
		"redis", cfg.Redis.URL != "",
	)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		if err := pool.Migrate(ctx, migrations.FS); err != nil {
			return err
		}
	}

	cache, err := platformRedis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	// Stores fall back to in-process implementations when the backing
	// service is not configured, which keeps local development to a
	// single binary.
	var (
		users     userStore.Store
		roles     roleStore.Store
		trail     audit.Store
		blocklist security.Blocklist
	)
	if pool != nil {
		users = userStore.NewPostgresStore(pool.DB())
		roles = roleStore.NewPostgresStore(pool.DB())
		trail = audit.NewPostgresStore(pool.DB())
		blocklist = security.NewPostgresBlocklist(pool.DB())
	} else {
		users = userStore.NewInMemoryStore()
		roles = roleStore.NewInMemoryStore()
		trail = audit.NewInMemoryStore()
		blocklist = security.NewInMemoryBlocklist()
	}

	var otps otpStore.Store
	var loginLimiter, requestLimiter ratelimit.Limiter
	var memLimiters []*ratelimit.MemoryLimiter
	if cache != nil {
		otps = otpStore.NewRedisStore(cache.Client)
		loginLimiter = ratelimit.NewRedisLimiter(cache.Client, cfg.LoginRateLimit, cfg.LoginRateWindow)
		requestLimiter = ratelimit.NewRedisLimiter(cache.Client, cfg.RequestRateLimit, cfg.RequestRateWindow)
	} else {
		otps = otpStore.NewInMemoryStore()
		login := ratelimit.NewMemoryLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
		request := ratelimit.NewMemoryLimiter(cfg.RequestRateLimit, cfg.RequestRateWindow)
		loginLimiter, requestLimiter = login, request
		memLimiters = append(memLimiters, login, request)
	}

	boot := seeder.New(roles, users, log)
	if err := boot.Run(ctx, seeder.AdminBootstrap{
		Email:    cfg.AdminEmail,
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}); err != nil {
		return err
	}

	m := metrics.New()
	recorder := audit.NewRecorder(trail, log)
	tokens := token.NewService(cfg.JWTSigningKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	engine := mfa.NewEngine(cfg.TOTPIssuer, []byte(cfg.EncryptionKey))

	svc := service.New(users, roles, otps, tokens, engine,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAudit(trail, recorder),
		service.WithLoginLimiter(loginLimiter),
		service.WithPolicy(service.Policy{
			LockoutThreshold:    cfg.LockoutThreshold,
			LockoutDuration:     cfg.LockoutDuration,
			VerificationCodeTTL: cfg.VerificationCodeTTL,
			ResetTokenTTL:       cfg.ResetTokenTTL,
		}),
	)

	pipeline := security.NewPipeline(blocklist, requestLimiter, []byte(cfg.CSRFKey),
		security.WithLogger(log),
		security.WithMetrics(m),
		security.WithRecorder(recorder),
		security.WithCSRFExempt(
			"/auth/register",
			"/auth/verify-email",
			"/auth/resend-code",
			"/auth/login",
			"/auth/refresh",
			"/auth/forgot-password",
			"/auth/reset-password",
		),
	)

	probes := health.New(cfg.Environment)
	if pool != nil {
		probes.AddCheck("database", pool.Health)
	}
	if cache != nil {
		probes.AddCheck("redis", cache.Health)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Auth: authHandler.New(svc, tokens, []byte(cfg.CSRFKey),
			authHandler.WithLogger(log),
			authHandler.WithSecureCookies(cfg.CookieSecure)),
		Pipeline:    pipeline,
		Health:      probes,
		Logger:      log,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	sweeper, err := cleanup.New(users, otps, trail, blocklist,
		cleanup.WithCleanupInterval(cfg.CleanupInterval),
		cleanup.WithAuditRetention(cfg.AuditRetention),
		cleanup.WithCleanupLogger(log),
	)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pool.RecordPoolStats()
				if cache != nil {
					cache.RecordPoolStats()
				}
				for _, l := range memLimiters {
					l.Purge()
				}
			case <-ctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
