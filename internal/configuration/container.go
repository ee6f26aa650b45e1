package configuration

import (
	"context"
	"fmt"
	"time"

	"github.com/Felag1n/AudioBridge/internal/auth"
	"github.com/Felag1n/AudioBridge/internal/db"
	"github.com/Felag1n/AudioBridge/internal/handler"
	"github.com/Felag1n/AudioBridge/internal/hub"
	"github.com/Felag1n/AudioBridge/internal/metrics"
	"github.com/Felag1n/AudioBridge/internal/model"
	"github.com/Felag1n/AudioBridge/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	Config      Config
	Logger      *zap.Logger
	Hub         *hub.Hub
	Verifier    *auth.Verifier
	ChatHandler *handler.ChatHandler
	Stats       *hub.StatsService

	// private - for cleanup
	mongoDB *mongo.Database
}

func BuildContainer(configPath string) (*Container, error) {
	config, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var logger *zap.Logger
	if config.Env == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	metrics.Register()

	var (
		messages store.MessageStore
		users    store.UserStore
		mongoDB  *mongo.Database
	)

	switch config.Storage {
	case "memory":
		messages = store.NewMemoryMessageStore()
		users = store.NewMemoryUserStore()
	case "mongo":
		mongoDB, err = db.OpenConnection(config.Mongo.URI, config.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		messages = store.NewMongoMessageStore(
			db.NewRepository[model.Message](mongoDB, config.Mongo.MessagesCollection), logger)
		users = store.NewMongoUserStore(
			db.NewRepository[model.User](mongoDB, config.Mongo.UsersCollection), logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage)
	}

	h := hub.NewHub(messages, users, config.Server.AllowedOrigins, logger)
	verifier := auth.NewVerifier(config.Auth.Secret)
	chatHandler := handler.NewChatHandler(h, messages, logger)

	return &Container{
		Config:      *config,
		Logger:      logger,
		Hub:         h,
		Verifier:    verifier,
		ChatHandler: chatHandler,
		Stats:       hub.NewStatsService(h),
		mongoDB:     mongoDB,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	if c.mongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoDB.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
