package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dumbal/internal/cache"
	"dumbal/internal/config"
	"dumbal/internal/repository"
	"dumbal/internal/service"
	"dumbal/internal/transport/rest"
	"dumbal/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()
	cfg := config.Load()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	// Redis connection
	redisAddr := strings.TrimPrefix(cfg.RedisAddr, "redis://")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Store, repository and services
	gameStore := cache.NewGameStore(rdb)
	leaderboard := cache.NewLeaderboard(rdb)
	gameRepo := repository.NewGameRepo(mongoClient)

	authSvc := service.NewAuthService()
	gameSvc := service.NewGameService(gameStore, gameRepo, leaderboard)
	playerSvc := service.NewPlayerService(gameStore, gameSvc, authSvc)

	dispatcher := ws.NewDispatcher(wsHub, gameSvc, playerSvc)

	router := rest.NewRouter(&rest.Container{
		GameService:   gameSvc,
		PlayerService: playerSvc,
		AuthService:   authSvc,
		WSHub:         wsHub,
		Dispatcher:    dispatcher,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Println("Endpoints:")
		log.Println("  POST/GET /v1/games")
		log.Println("  GET/DELETE /v1/games/{id}")
		log.Println("  GET  /v1/games/{id}/players")
		log.Println("  GET  /v1/games/{id}/state")
		log.Println("  GET  /v1/leaderboard")
		log.Println("  WS   /v1/ws")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
