package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Quilt/pkg/logger"
	"Quilt/storage/database"
	"Quilt/storage/mq"
	"Quilt/storage/redis"
)

type closer struct {
	name  string
	close func(context.Context) error
}

// 先停 MQ 不再收发消息，再关 Redis，最后关数据库
var closers = []closer{
	{name: "message queue", close: mq.Close},
	{name: "redis", close: redis.Close},
	{name: "database", close: database.Close},
}

// Close 优雅关闭所有存储连接，单个失败不影响其余关闭
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Logger.Info("Closing storage connections...")

	failed := 0
	for _, c := range closers {
		if err := c.close(ctx); err != nil {
			failed++
			logger.Logger.Error("Failed to close storage connection",
				zap.String("storage", c.name),
				zap.Error(err),
			)
			continue
		}
		logger.Logger.Info("Storage connection closed", zap.String("storage", c.name))
	}

	logger.Logger.Info("Storage shutdown finished", zap.Int("failed", failed))
}
