package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"go-forces/internal/chat"
	"go-forces/internal/codeforces"
	"go-forces/internal/config"
	"go-forces/internal/contest"
	"go-forces/internal/db"
	"go-forces/internal/friend"
	"go-forces/internal/middleware"
	"go-forces/internal/problem"
	"go-forces/internal/user"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Platform layer.
	database, err := db.New(cfg.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer database.Close()
	log.Info().Msg("connected to postgres")

	if err := database.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("init schema")
	}

	// Redis is optional: without it the chat bridge is in-process and the
	// Codeforces cache is off.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect to redis")
		}
		log.Info().Msg("connected to redis")
	}

	var cfCache codeforces.Cache
	if rdb != nil {
		cfCache = codeforces.NewRedisCache(rdb, cfg.CodeforcesCacheTTL)
	}
	cfClient := codeforces.NewClient(cfg.CodeforcesURL, cfg.CodeforcesTimeout, cfCache, log)

	// Features.
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, cfClient, cfg.JWTSecret, cfg.TokenTTL)
	userHandler := user.NewHandler(userService, log)

	friendRepo := friend.NewRepository(database.Conn)
	friendHandler := friend.NewHandler(friendRepo, log)

	var bridge chat.Bridge
	if rdb != nil {
		bridge = chat.NewRedisBridge(rdb)
	} else {
		bridge = chat.NewLoopbackBridge()
	}
	chatRepo := chat.NewRepository(database.Conn)
	hub := chat.NewHub(bridge, log)
	go hub.Run(ctx)
	chatHandler := chat.NewHandler(hub, chatRepo, log)

	contestHandler := contest.NewHandler(cfClient, log)

	problemRepo := problem.NewRepository(database.Conn)
	problemHandler := problem.NewHandler(cfClient, problemRepo, log)

	authMiddleware := middleware.NewAuthMiddleware(userService)

	// Routes.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes, rate limited: both hit bcrypt.
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(20, time.Minute))
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
	})

	// Protected routes.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/ws", chatHandler.ServeWS)

		r.Get("/api/users/me", userHandler.Me)
		r.Get("/api/users/search", userHandler.Search)
		r.Post("/api/users/verify-handle", userHandler.VerifyHandle)

		r.Get("/api/friends", friendHandler.List)
		r.Post("/api/friends", friendHandler.Add)
		r.Delete("/api/friends/{username}", friendHandler.Remove)

		r.Post("/api/conversations", chatHandler.StartConversation)
		r.Get("/api/chat/history/{username}", chatHandler.History)

		r.Get("/api/contests", contestHandler.Upcoming)

		r.Get("/api/problems", problemHandler.List)
		r.Get("/api/problems/bookmarks", problemHandler.ListBookmarks)
		r.Post("/api/problems/bookmarks", problemHandler.ToggleBookmark)
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen and serve")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
