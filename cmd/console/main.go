package main

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/adapter/cache"
	"github.com/bizlink/workplace-console/internal/config"
	"github.com/bizlink/workplace-console/internal/graph"
	consolehttp "github.com/bizlink/workplace-console/internal/http"
	"github.com/bizlink/workplace-console/internal/http/handler"
	"github.com/bizlink/workplace-console/internal/identity"
	"github.com/bizlink/workplace-console/internal/repository"
	"github.com/bizlink/workplace-console/internal/server"
	"github.com/bizlink/workplace-console/internal/service"
	"github.com/bizlink/workplace-console/internal/signedrequest"
	"github.com/bizlink/workplace-console/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newSnowflakeNode,
			newPGXPool,
			newRedisClient,
			newHTTPDoer,

			func(pool *pgxpool.Pool) repository.UserRepository { return repository.NewPostgresUserRepo(pool) },
			func(pool *pgxpool.Pool) repository.CommunityRepository { return repository.NewPostgresCommunityRepo(pool) },
			func(pool *pgxpool.Pool) repository.PageRepository { return repository.NewPostgresPageRepo(pool) },
			func(pool *pgxpool.Pool) repository.CallbackRepository { return repository.NewPostgresCallbackRepo(pool) },
			func(client *redis.Client) repository.LinkStateStore { return cache.NewRedisLinkStore(client) },

			newGraphClient,
			newKeySetFetcher,
			newIdentityVerifier,
			newSignedRequestVerifier,

			service.NewInstallService,
			service.NewAdminService,
			service.NewCallbackService,
			service.NewAccountService,

			handler.NewAccountHandler,
			handler.NewInstallHandler,
			handler.NewAdminHandler,
			handler.NewCallbackHandler,

			newRouter,
			newHTTPServer,
		),
		fx.Invoke(startHTTPServer),
	)
	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("connected to postgres")

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return client.Close() },
	})
	return client, nil
}

func newHTTPDoer() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

func newGraphClient(client *http.Client, cfg config.Config) graph.Client {
	return graph.NewHTTPClient(client, graph.Config{
		BaseURL:   cfg.GraphURL,
		Version:   cfg.GraphVersion,
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
	})
}

func newKeySetFetcher(client *http.Client, cfg config.Config) identity.KeySetFetcher {
	return identity.NewHTTPKeySetFetcher(client, cfg.OpenIDKeysURL)
}

func newIdentityVerifier(cfg config.Config) *identity.Verifier {
	return identity.NewVerifier(cfg.AppID, cfg.Issuer)
}

func newSignedRequestVerifier(cfg config.Config) *signedrequest.Verifier {
	return signedrequest.NewVerifier(cfg.AppSecret)
}

func newRouter(
	cfg config.Config,
	logger *zap.Logger,
	users repository.UserRepository,
	accounts *handler.AccountHandler,
	installs *handler.InstallHandler,
	admin *handler.AdminHandler,
	callbacks *handler.CallbackHandler,
) *gin.Engine {
	return consolehttp.NewRouter(consolehttp.RouterParams{
		Config:    cfg,
		Logger:    logger,
		Users:     users,
		Accounts:  accounts,
		Installs:  installs,
		Admin:     admin,
		Callbacks: callbacks,
	})
}

func newHTTPServer(cfg config.Config, router *gin.Engine, logger *zap.Logger) *server.HTTPServer {
	return server.New(cfg, router, logger)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	var provider *telemetry.Provider

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p, err := telemetry.Setup(ctx, cfg)
			if err != nil {
				return err
			}
			provider = p

			go func() {
				if err := srv.Start(); err != nil {
					logger.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("shutdown error", zap.Error(err))
			}
			if provider != nil {
				return provider.Shutdown(ctx)
			}
			return nil
		},
	})
}
