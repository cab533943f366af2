package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lovelink/backend/internal/api/handler"
	"lovelink/backend/internal/auth"
	"lovelink/backend/internal/chat"
	"lovelink/backend/internal/chathub"
	"lovelink/backend/internal/config"
	"lovelink/backend/internal/media"
	"lovelink/backend/internal/metrics"
	"lovelink/backend/internal/models"
	"lovelink/backend/internal/presence"
	"lovelink/backend/internal/storage"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.ChatRoom{},
		&models.ChatParticipant{},
		&models.ChatMessage{},
		&models.ChatMedia{},
		&models.Block{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	return db, rdb
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, rdb := setupDependencies(cfg)
	store := storage.NewService(db, rdb, logger)

	ctx := context.Background()

	presigner, err := media.NewS3Presigner(ctx, cfg.S3Region)
	if err != nil {
		logger.Fatal("failed to build S3 presigner", zap.Error(err))
	}
	mediaSvc := media.NewService(media.NewNormalizer(cfg.MediaBuckets), presigner, store, cfg, logger)

	tracker := presence.NewTracker()
	hub := chathub.NewManager(store, tracker, logger)
	publisher := chathub.NewPublisher(store, logger)

	rooms := chat.NewRoomService(store, logger)
	messages := chat.NewMessageService(store, mediaSvc, publisher, cfg, logger)
	gateway := chathub.NewGateway(rooms, messages, hub, cfg, logger)
	authn := auth.NewAuthenticator(cfg.JWTSecret, store, logger)

	go hub.Run(ctx)

	r := gin.Default()
	h := handler.NewHandler(authn, rooms, messages, mediaSvc, hub, gateway, cfg, logger)
	h.RegisterRoutes(r)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logger.Info("starting server", zap.String("addr", cfg.HTTPAddr))
	log.Fatal(server.ListenAndServe())
}
