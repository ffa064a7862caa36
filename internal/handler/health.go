package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"Quilt/config"
	"Quilt/pkg/logger"
	"Quilt/storage/database"
	"Quilt/storage/redis"
)

// Healthz 存活检查
// GET /healthz
func Healthz(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]string{
		"status":  "ok",
		"service": config.Cfg.ServiceName,
		"version": config.Cfg.ServiceVersion,
	})
}

// Readyz 就绪检查，数据库与 Redis 都可用才返回 200
// GET /readyz
func Readyz(ctx context.Context, c *app.RequestContext) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "redis": "ok"}
	healthy := true

	if db := database.DB(); db == nil {
		checks["database"] = "not initialized"
		healthy = false
	} else if sqlDB, err := db.DB(); err != nil {
		checks["database"] = "unavailable"
		healthy = false
	} else if err := sqlDB.PingContext(ctx); err != nil {
		logger.Logger.Warn("Database ping failed", zap.Error(err))
		checks["database"] = "unavailable"
		healthy = false
	}

	if err := redis.Client().Ping(ctx).Err(); err != nil {
		logger.Logger.Warn("Redis ping failed", zap.Error(err))
		checks["redis"] = "unavailable"
		healthy = false
	}

	status := consts.StatusOK
	if !healthy {
		status = consts.StatusServiceUnavailable
	}
	c.JSON(status, checks)
}
