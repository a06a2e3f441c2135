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

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/tagdesk/adapters/captcha"
	"github.com/layer-3/tagdesk/adapters/events"
	"github.com/layer-3/tagdesk/adapters/postgres"
	"github.com/layer-3/tagdesk/adapters/store"
	"github.com/layer-3/tagdesk/adapters/tokenizer"
	"github.com/layer-3/tagdesk/core"
	"github.com/layer-3/tagdesk/internal/config"
	"github.com/layer-3/tagdesk/internal/logger"
	"github.com/layer-3/tagdesk/internal/password"
	"github.com/layer-3/tagdesk/ports"
	"github.com/layer-3/tagdesk/service"
	transport "github.com/layer-3/tagdesk/transport/http"
)

func main() {
	var configPath, seedUser, seedPassword string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.StringVar(&seedUser, "seed-user", "", "create this user and exit")
	flag.StringVar(&seedPassword, "seed-password", "", "password for -seed-user")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := logger.New(cfg.Env, cfg.Log.Level)
	slog.SetDefault(log)

	if err := run(cfg, log, seedUser, seedPassword); err != nil {
		log.Error("tagdesk_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger, seedUser, seedPassword string) error {
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if cfg.DB.Migrate {
		if err := postgres.Migrate(cfg.DB.DatabaseURL); err != nil {
			return err
		}
		log.Info("migrations_applied")
	}

	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	db, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("postgres_connected")

	hasher := password.NewHasher(cfg.Auth.PasswordPepper)

	if seedUser != "" {
		return seed(rootCtx, log, db, hasher, seedUser, seedPassword)
	}

	cache, publisher, closeCache, err := setupCache(rootCtx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	accessTTL := cfg.JWT.AccessTTL()
	tk := tokenizer.NewJWTTokenizer(cfg.JWT.Tokenizer())
	registry := service.NewSessionRegistry(cache, accessTTL)

	authService := service.NewAuthService(log, tk, db, registry, publisher, accessTTL)
	captchaService := service.NewCaptchaService(captcha.NewDriver(captcha.DefaultOptions()), cache, cfg.Session.CaptchaTTL())
	tagService := service.NewTagService(db)

	if cfg.Env == logger.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := transport.SetupRouter(transport.RouterConfig{
		Log:               log,
		Auth:              authService,
		Captcha:           captchaService,
		Tags:              tagService,
		Hasher:            hasher,
		Checks:            map[string]transport.Pinger{"postgres": db, "cache": cache},
		SessionSecret:     cfg.Session.Secret,
		SessionCookieName: cfg.Session.CookieName,
		SecureCookies:     cfg.Env == logger.EnvProd,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		TrustedProxies:    cfg.App.TrustedProxies,
		RequestTimeout:    cfg.App.RequestTimeout,
		AuthRatePerMinute: cfg.Auth.RateLimitPerMinute,
	})

	srv := &http.Server{
		Addr:              cfg.App.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.Any("error", err))
		return srv.Close()
	}

	log.Info("service_stopped")
	return nil
}

// setupCache returns the token cache and the logout publisher. Both share
// the Redis client when the redis driver is selected.
func setupCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (ports.Store, ports.EventPublisher, func(), error) {
	if cfg.Redis.Driver == "memory" {
		log.Warn("cache_in_memory", slog.String("note", "tokens are not shared between instances"))
		return store.NewMemoryStore(), events.NopPublisher{}, func() {}, nil
	}

	client, err := store.Connect(ctx, cfg.Redis.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Info("redis_connected")

	var pub ports.EventPublisher = events.NopPublisher{}
	closers := []func() error{client.Close}

	if cfg.Events.Enabled {
		p, err := newStreamPublisher(client, log)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		pub = events.NewWatermillPublisher(p)
		closers = append([]func() error{p.Close}, closers...)
		log.Info("logout_events_enabled", slog.String("topic", events.LogoutTopic))
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("cache_close_failed", slog.Any("error", err))
			}
		}
	}

	return store.NewRedisStore(client), pub, closeAll, nil
}

func newStreamPublisher(client *redis.Client, log *slog.Logger) (*redisstream.Publisher, error) {
	return redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		watermill.NewSlogLogger(log),
	)
}

func seed(ctx context.Context, log *slog.Logger, db *postgres.Storage, hasher *password.Hasher, userName, plain string) error {
	if plain == "" {
		return errors.New("-seed-password is required with -seed-user")
	}

	u := &core.User{UserName: userName, PasswordHash: hasher.Hash(plain)}
	if err := db.SaveUser(ctx, u); err != nil {
		return err
	}

	log.Info("user_seeded", slog.Int64("user_id", u.ID), slog.String("user_name", userName))
	return nil
}
