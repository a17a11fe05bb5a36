package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"litebans-web/internal/api/handler"
	"litebans-web/internal/api/middleware"
	"litebans-web/internal/api/websocket"
	"litebans-web/internal/auth"
	"litebans-web/internal/bot"
	"litebans-web/internal/config"
	"litebans-web/internal/database"
	"litebans-web/internal/kv"
	"litebans-web/internal/logging"
	"litebans-web/internal/metrics"
	"litebans-web/internal/player"
	"litebans-web/internal/records"
	"litebans-web/internal/repository"
	"litebans-web/internal/share"
	"litebans-web/internal/stats"
)

const version = "1.0.0"

type recordService interface {
	handler.RecordService
	websocket.FeedService
}

type authorizer interface {
	middleware.Authorizer
	handler.Authorizer
}

type routerDeps struct {
	Verifier     middleware.SessionVerifier
	Authorizer   authorizer
	Records      recordService
	Players      handler.PlayerResolver
	Shares       handler.ShareStore
	Stats        handler.StatsProvider
	PageSizes    handler.PageSizes
	FeedInterval time.Duration
	// FeedShutdown closes open websocket feeds when done. May be nil.
	FeedShutdown context.Context
	Log          zerolog.Logger
}

func setupRouter(d routerDeps) http.Handler {
	if d.FeedShutdown == nil {
		d.FeedShutdown = context.Background()
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(d.Log), metrics.Middleware(), middleware.CORSMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/api/v1")
	{
		public.GET("/health", handler.Health())
		public.GET("/categories", handler.ListCategories())
	}

	// open shares are readable by anyone holding the key
	shared := r.Group("/api/v1")
	shared.Use(middleware.OptionalAuthenticate(d.Verifier))
	{
		shared.GET("/shares/:key", handler.GetShare(d.Shares, d.Records, d.Authorizer))
	}

	signedIn := r.Group("/api/v1")
	signedIn.Use(middleware.Authenticate(d.Verifier))
	{
		signedIn.GET("/me", handler.GetMe(d.Authorizer))
	}

	staff := r.Group("/api/v1")
	staff.Use(middleware.Authenticate(d.Verifier), middleware.RequireAuthorized(d.Authorizer))
	{
		staff.GET("/records", handler.ListRecords(d.Records, d.PageSizes))
		staff.GET("/records/:category/:id", handler.GetRecord(d.Records))
		staff.GET("/players/:query", handler.GetPlayer(d.Players))
		staff.GET("/stats", handler.GetStats(d.Stats))
		staff.POST("/shares", handler.CreateShare(d.Shares, d.Records))
	}

	ws := r.Group("/ws")
	ws.Use(middleware.Authenticate(d.Verifier), middleware.RequireAuthorized(d.Authorizer))
	{
		ws.GET("/records", websocket.RecordFeedHandler(d.FeedShutdown, d.Records, d.FeedInterval, d.Log))
	}

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("version", version).Msg("litebans-web starting")
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = kv.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
	} else {
		log.Warn().Msg("REDIS_URL not set, sharing is disabled and role checks are cached in memory only")
	}

	repo := repository.NewRecords(db, cfg.TablePrefix)
	resolver := player.NewResolver(
		player.NewHTTPLookup(cfg.ProfileAPIURL, cfg.ProfileTimeout),
		player.NewCache(cfg.PlayerCacheTTL, cfg.PlayerCacheSweep),
		player.ResolverOptions{
			Avatars:       player.Avatars{BaseURL: cfg.ProfileAPIURL},
			Names:         repo,
			LookupTimeout: cfg.ProfileTimeout,
			Logger:        log,
		},
	)
	svc := records.NewService(repo, resolver, log)

	verifier, err := auth.NewSessionVerifier(ctx, cfg.IdPJWKSURL, cfg.IdPIssuer, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session verifier")
	}
	roles := auth.NewGuildRoles(auth.GuildRolesOptions{
		IdPAPIURL:     cfg.IdPAPIURL,
		IdPSecretKey:  cfg.IdPSecretKey,
		OAuthProvider: cfg.IdPOAuthProvider,
		DiscordAPIURL: cfg.DiscordAPIURL,
		GuildID:       cfg.RequiredGuildID,
	})
	authz := auth.NewAuthorizer(roles, auth.AuthorizerOptions{
		RequiredRole: cfg.RequiredRoleID,
		DemoMode:     cfg.DemoMode,
		CacheTTL:     cfg.RoleCacheTTL,
		Redis:        rdb,
		KeyPrefix:    cfg.KeyPrefix,
		Logger:       log,
	})
	if cfg.DemoMode {
		log.Warn().Msg("demo mode: every signed-in user is authorized")
	}

	collector := stats.NewCollector(repo, cfg.StatsInterval, log)
	collector.Start(ctx)

	if cfg.TelegramBotToken != "" {
		botHandler, err := bot.NewBotHandler(cfg.TelegramBotToken, cfg.TelegramWebAppURL, collector, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Telegram bot")
		}
		go botHandler.Start(ctx)
		log.Info().Msg("Telegram bot started")
	} else {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot")
	}

	// Shutdown does not track hijacked connections, so feeds get their own signal.
	feedCtx, stopFeeds := context.WithCancel(context.Background())
	defer stopFeeds()

	router := setupRouter(routerDeps{
		Verifier:     verifier,
		Authorizer:   authz,
		Records:      svc,
		Players:      resolver,
		Shares:       share.NewStore(rdb, cfg.KeyPrefix, cfg.ShareTTL),
		Stats:        collector,
		PageSizes:    handler.PageSizes{Default: cfg.DefaultPageSize, Max: cfg.MaxPageSize},
		FeedInterval: cfg.FeedInterval,
		FeedShutdown: feedCtx,
		Log:          log,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(stopFeeds)

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
