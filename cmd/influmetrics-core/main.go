package main

// @title           InfluMetrics Core API
// @version         1.0
// @description     Instagram account connection and insights API.

// @contact.name   InfluMetrics OSS
// @contact.url    https://github.com/custodia-labs/influmetrics-core/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/custodia-labs/influmetrics-core/docs"
	"github.com/custodia-labs/influmetrics-core/internal/adapters/driven/auth"
	"github.com/custodia-labs/influmetrics-core/internal/adapters/driven/database"
	"github.com/custodia-labs/influmetrics-core/internal/adapters/driven/graph"
	redisadapter "github.com/custodia-labs/influmetrics-core/internal/adapters/driven/redis"
	"github.com/custodia-labs/influmetrics-core/internal/adapters/driven/statesign"
	"github.com/custodia-labs/influmetrics-core/internal/adapters/driven/telemetry"
	httpserver "github.com/custodia-labs/influmetrics-core/internal/adapters/driving/http"
	"github.com/custodia-labs/influmetrics-core/internal/config"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
	"github.com/custodia-labs/influmetrics-core/internal/core/services"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	// Command line arg overrides RUN_MODE
	if len(os.Args) > 1 {
		cfg.RunMode = strings.ToLower(os.Args[1])
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("influmetrics-core starting", "version", version, "mode", cfg.RunMode, "env", cfg.Environment)

	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== Initialize database =====
	logger.Info("connecting to database", "driver", cfg.Database.Driver)
	db, err := database.Connect(ctx, database.Config{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		fatal(logger, "failed to connect to database", err)
	}
	defer db.Close()

	// Initialize schema (idempotent)
	if err := db.InitSchema(ctx); err != nil {
		fatal(logger, "failed to initialize schema", err)
	}
	logger.Info("database connected and schema initialized")

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		logger.Info("connecting to redis")
		redisClient, err = redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			fatal(logger, "failed to connect to redis", err)
		}
		defer redisClient.Close()
		logger.Info("redis connected")
	}

	// ===== Token encryption at rest =====
	var sealer database.TokenSealer = database.PlaintextSealer{}
	if cfg.Database.EncryptionKey != "" {
		key, err := database.ParseEncryptionKey(cfg.Database.EncryptionKey)
		if err != nil {
			fatal(logger, "invalid TOKEN_ENCRYPTION_KEY", err)
		}
		encryptor, err := database.NewSecretEncryptor(key)
		if err != nil {
			fatal(logger, "failed to create token encryptor", err)
		}
		sealer = encryptor
		logger.Info("instagram tokens are encrypted at rest")
	} else {
		logger.Warn("TOKEN_ENCRYPTION_KEY not set, instagram tokens are stored in plaintext")
	}

	// ===== Driven adapters (infrastructure) =====
	metrics := telemetry.New()
	authAdapter := auth.NewAdapter(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	signer, err := statesign.New(cfg.Instagram.StateSecret)
	if err != nil {
		fatal(logger, "failed to create state signer", err)
	}
	provider := graph.NewClient(graph.Config{
		ClientID:     cfg.Instagram.ClientID,
		ClientSecret: cfg.Instagram.ClientSecret,
		RedirectURI:  cfg.Instagram.RedirectURI,
		AuthURL:      cfg.Instagram.AuthURL,
		GraphBaseURL: cfg.Instagram.GraphBaseURL,
		Scopes:       cfg.Instagram.Scopes,
		HTTPClient: &http.Client{
			Timeout:   cfg.Instagram.HTTPTimeout,
			Transport: metrics.InstrumentTransport(http.DefaultTransport),
		},
	})

	// ===== Stores =====
	tokenStore := database.NewTokenStore(db, sealer, nil)
	userStore := database.NewUserStore(db)

	// Session and pending login stores (Redis if available, otherwise SQL)
	var (
		sessionStore driven.SessionStore
		pendingStore driven.PendingLoginStore
	)
	if redisClient != nil {
		sessionStore = redisadapter.NewSessionStore(redisClient)
		pendingStore = redisadapter.NewPendingLoginStore(redisClient)
		logger.Info("using redis session and pending login stores")
	} else {
		sessionStore = database.NewSessionStore(db)
		pendingStore = database.NewPendingLoginStore(db, nil)
		logger.Info("using sql session and pending login stores")
	}

	// Distributed lock (Redis if available, otherwise PostgreSQL advisory locks)
	var distributedLock driven.DistributedLock
	if redisClient != nil {
		distributedLock = redisadapter.NewLock(redisClient)
		logger.Info("using redis distributed lock")
	} else if advisory, err := database.NewAdvisoryLock(db); err == nil {
		distributedLock = advisory
		logger.Info("using postgres advisory lock")
	} else if errors.Is(err, database.ErrAdvisoryLockUnsupported) {
		logger.Warn("no distributed lock available, token refresher runs unguarded", "driver", db.Driver())
	} else {
		fatal(logger, "failed to create advisory lock", err)
	}

	// ===== Services (core business logic) =====
	authService := services.NewAuthService(userStore, sessionStore, authAdapter, services.AuthConfig{
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL(),
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL(),
	})
	loginService := services.NewLoginService(services.LoginServiceConfig{
		Provider:  provider,
		Store:     tokenStore,
		Scopes:    cfg.Instagram.Scopes,
		Telemetry: metrics,
		Logger:    logger,
	})
	connectionService := services.NewConnectionService(services.ConnectionServiceConfig{
		Provider:          provider,
		Store:             tokenStore,
		Signer:            signer,
		PendingLogins:     pendingStore,
		Login:             loginService,
		Telemetry:         metrics,
		Logger:            logger,
		PendingLoginTTL:   cfg.Instagram.PendingLoginTTL,
		DefaultReturnPath: cfg.Frontend.DefaultReturnPath,
	})
	metricsService := services.NewMetricsService(tokenStore, provider, metrics, logger)

	var wg sync.WaitGroup

	if cfg.RunsWorker() {
		refresher := services.NewTokenRefresher(services.TokenRefresherConfig{
			Provider:  provider,
			Store:     tokenStore,
			Lock:      distributedLock,
			Telemetry: metrics,
			Logger:    logger,
			Interval:  cfg.Refresh.Interval,
			Window:    cfg.Refresh.Window,
		})
		if err := refresher.Start(ctx); err != nil {
			fatal(logger, "failed to start token refresher", err)
		}
		logger.Info("token refresher started", "interval", cfg.Refresh.Interval, "window", cfg.Refresh.Window)
		defer refresher.Stop()
	} else if cfg.RunMode != config.ModeAPI {
		logger.Info("token refresher disabled via TOKEN_REFRESH_ENABLED=false")
	}

	if cfg.RunsAPI() {
		infra := httpserver.Infrastructure{DB: db, Observer: metrics}
		if redisClient != nil {
			infra.Redis = httpserver.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			})
		}
		server := httpserver.NewServer(httpserver.Config{
			Host:            cfg.Host,
			Port:            cfg.Port,
			Version:         version,
			FrontendURL:     cfg.Frontend.BaseURL(),
			AllowedOrigins:  cfg.Frontend.URLs,
			CookieSecure:    cfg.Frontend.CookieSecure,
			PendingLoginTTL: cfg.Instagram.PendingLoginTTL,
			Logger:          logger,
		}, httpserver.Services{
			Auth:       authService,
			Connection: connectionService,
			Metrics:    metricsService,
		}, infra)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(ctx); err != nil {
				logger.Error("http server failed", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping")
	wg.Wait()
	logger.Info("influmetrics-core stopped")
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
