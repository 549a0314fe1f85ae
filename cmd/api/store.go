package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harentsoaR/counsel-api/internal/config"
	"github.com/harentsoaR/counsel-api/internal/repository"
	"github.com/harentsoaR/counsel-api/internal/repository/memory"
	"github.com/harentsoaR/counsel-api/internal/repository/mongostore"
)

type storage struct {
	store *repository.Store
	ping  func(ctx context.Context) error
	close func()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	if cfg.StorageBackend == config.StorageMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return &storage{store: memory.NewStore(), close: func() {}}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongostore.Connect(connectCtx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDatabase)
	if err := mongostore.EnsureIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("Successfully connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	return &storage{
		store: mongostore.NewStore(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Warn("MongoDB disconnect failed", zap.Error(err))
			}
		},
	}, nil
}
