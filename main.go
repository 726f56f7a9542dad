package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"opschat/internal/config"
	"opschat/internal/database/db_client"
	"opschat/internal/http/http_server"
	"opschat/internal/http/notifyhandler"
	"opschat/internal/redis/presence"
	"opschat/internal/redis/redis_client"
	"opschat/internal/services/auth"
	"opschat/internal/services/chat"
	"opschat/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (presence read-model)
	redisClient, err := redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Postgres (persisted rooms and messages, read-only here)
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort,
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 5. Collaborator services
	authService := auth.NewAuthService(cfg.JwtSecret, cfg.JwtIssuer)
	chatService := chat.NewChatService(pgDb)
	presenceStore := presence.NewStore(redisClient)

	// 6. Signaling core + background sweeps
	wsSrv := ws.NewWsServer(authService, chatService, presenceStore, ws.Options{
		HeartbeatInterval: time.Duration(cfg.HeartbeatIntervalSec) * time.Second,
		TypingTimeout:     time.Duration(cfg.TypingTimeoutSec) * time.Second,
	})
	wsSrv.Run(ctx)

	// 7. HTTP + WS server
	nh := notifyhandler.New(wsSrv, presenceStore)
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, nh)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
