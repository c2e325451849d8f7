package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pollgen/internal/cache"
	"pollgen/internal/config"
	"pollgen/internal/repository"
	"pollgen/internal/service"
	"pollgen/internal/transport/rest"
	"pollgen/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("LOG_PRETTY") == "true" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	cfg := config.Load()
	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal().Err(err).Msg("failed to ping MongoDB")
	}
	log.Info().Str("db", cfg.MongoDB).Msg("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping Redis")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

	// WebSocket hub
	wsHub := ws.NewHub(log)

	// Repositories
	roomRepo := repository.NewRoomRepo(db)
	pollRepo := repository.NewPollRepo(db)
	reportRepo := repository.NewReportRepo(db)

	// Caches
	roomCache := cache.NewRoomCache(rdb)
	leaderboard := cache.NewLeaderboardCache(rdb)

	// Services
	authSvc := service.NewAuthService(cfg.HostUsername, cfg.HostPassword, cfg.JWTSecret)
	engine := service.NewSessionEngine(leaderboard, log)
	roomSvc := service.NewRoomService(roomRepo, roomCache, engine, authSvc, log)
	pollSvc := service.NewPollService(pollRepo, roomRepo, engine, log)
	reportSvc := service.NewReportService(roomRepo, reportRepo, roomCache, leaderboard, engine, log)

	// The hub implements service.Broadcaster; wired after construction
	// to break the service <-> transport cycle.
	engine.SetBroadcaster(wsHub)
	reportSvc.SetBroadcaster(wsHub)

	gateway := ws.NewGateway(wsHub, pollSvc, engine, reportSvc, log)
	wsHandler := ws.NewHandler(wsHub, gateway, authSvc, roomSvc, engine, log)

	router := rest.NewRouter(&rest.Container{
		AuthService:   authSvc,
		RoomService:   roomSvc,
		PollService:   pollSvc,
		ReportService: reportSvc,
		Leaderboard:   leaderboard,
		WSHandler:     wsHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen and serve")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
