package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "portfolio_chat_service/docs"
	apihandlers "portfolio_chat_service/internal/api/handlers"
	apirouter "portfolio_chat_service/internal/api/router"
	"portfolio_chat_service/internal/chat/app"
	"portfolio_chat_service/internal/chat/repository"
	"portfolio_chat_service/internal/chat/router"
	"portfolio_chat_service/pkg"
	"portfolio_chat_service/pkg/config"
	"portfolio_chat_service/pkg/database"
	"portfolio_chat_service/pkg/logger"
	testtool "portfolio_chat_service/pkg/test_tool"
	"portfolio_chat_service/pkg/token"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()

	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	syncCfg := cfg.Sync.WithDefaults()
	token.SetSecret(cfg.JWTSecret)
	if cfg.AdminEmail == "" {
		logger.Log.Warn("admin_email not set, only tokens with role admin reach the inbox")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 對話儲存 + snapshot feed
	var (
		repo repository.ConversationRepository
		feed repository.ConversationFeed
	)
	if cfg.MongoSQL.Host == "" {
		logger.Log.Warn("mongo not configured, conversations are kept in memory")
		store := repository.NewMemoryStore()
		repo = repository.NewPublishingRepository(store, store)
		feed = store
	} else {
		uri := database.MongoURI(cfg.MongoSQL.Host, cfg.MongoSQL.Port, cfg.MongoSQL.User, cfg.MongoSQL.Password)
		mongo, err := database.NewMongoDB(ctx,
			database.Connection{
				ConnectStr:    uri,
				RetryCount:    cfg.MongoSQL.RetryCount,
				RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
			},
			cfg.MongoSQL.Database)
		if err != nil {
			logger.Log.Fatal("Unable to connect to mongoDB database after retries",
				zap.String("host", cfg.MongoSQL.Host),
				zap.Error(err))
		}
		defer mongo.Close(context.Background())

		if err := repository.EnsureIndexes(ctx, mongo.Database); err != nil {
			logger.Log.Fatal("ensure conversation indexes failed", zap.Error(err))
		}

		// 2. Redis pub/sub 廣播 snapshot
		redisClient, err := connectRedis(cfg.Redis)
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
		}
		defer redisClient.Close()

		mongoRepo := repository.NewMongoConversationRepository(mongo.Database)
		pubsub := repository.NewRedisPubSub(redisClient, mongoRepo)
		repo = repository.NewPublishingRepository(mongoRepo, pubsub)
		feed = pubsub
	}

	// 3. 附件 (MinIO)
	var storage repository.AttachmentStorage
	if cfg.MinIO.Host != "" {
		minioClient, err := database.NewMinIOConnection(ctx, database.MinIOConnection{
			Endpoint:      fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
			User:          cfg.MinIO.User,
			Password:      cfg.MinIO.Password,
			BucketName:    cfg.MinIO.Bucket,
			UseSSL:        cfg.MinIO.UseSSL,
			RetryCount:    cfg.MinIO.RetryCount,
			RetryInterval: time.Duration(cfg.MinIO.RetryInterval) * time.Second,
		})
		if err != nil {
			logger.Log.Fatal("Unable to connect to minio after retries", zap.Error(err))
		}
		storage = repository.NewMinIOAttachmentStorage(minioClient, cfg.MinIO.PublicBaseURL)
	} else {
		logger.Log.Warn("minio not configured, image attachments are rejected")
	}

	// 4. 訊息事件 (Kafka)
	events := repository.NewNopEventPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(ctx, database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         pkg.FirstNonEmpty(cfg.Kafka.Topic, config.DefaultKafkaTopic),
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval) * time.Second,
		})
		if err != nil {
			logger.Log.Warn("kafka unavailable, message events disabled", zap.Error(err))
		} else {
			defer writer.Close()
			events = repository.NewKafkaEventPublisher(writer)
		}
	}

	// 5. 初始化 UseCases
	chatUC := app.NewChatUseCase(repo, feed, storage, events, syncCfg)
	inboxUC := app.NewInboxUseCase(repo, syncCfg.InboxLimit, syncCfg.PresenceWindow)
	contactUC := app.NewContactUseCase(repo, events)

	// 6. 啟動 Fiber
	r := fiber.New(fiber.Config{
		// 附件以 base64 放在 websocket frame, REST body 只有聯絡表單
		BodyLimit: 4 * 1024 * 1024,
	})
	logDir := pkg.FirstNonEmpty(config.EnvConfig.ChatServiceLogPath, "./logs")
	file, err := os.OpenFile(filepath.Join(logDir, "access.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	// 注册路由
	apirouter.RegisterRoutes(r,
		apihandlers.NewContactHandler(contactUC),
		apihandlers.NewInboxHandler(inboxUC),
		cfg.AdminEmail)
	router.RegisterRoutes(r, app.NewChatWebsocketHandler(chatUC, inboxUC, feed), cfg.AdminEmail)

	testtool.StartPprof()

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down chat service")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("fiber shutdown failed", zap.Error(err))
		}
	}()

	// Listen
	port := ":" + pkg.FirstNonEmpty(cfg.Port, config.EnvConfig.ChatServicePort, "8082")
	logger.Log.Info("Chat Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}

// connectRedis 有設定 addr 時走單機, 否則走 sentinel
func connectRedis(c config.RedisConfig) (*redis.Client, error) {
	if c.Addr != "" {
		return database.NewStandaloneRedisClient(c.Addr, c.Password, c.RedisDB)
	}
	masterName, sentinel := config.GetRedisSetting()
	return database.NewRedisClient(masterName, sentinel, c.RedisDB)
}
