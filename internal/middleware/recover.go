package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"Quilt/config"
	"Quilt/pkg/errors"
	"Quilt/pkg/logger"
	"Quilt/pkg/response"
)

// RecoverMiddleware 捕获 panic，记录日志与 span，返回统一 500
func RecoverMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				handlePanic(ctx, c, err)
			}
		}()

		c.Next(ctx)
	}
}

func handlePanic(ctx context.Context, c *app.RequestContext, err interface{}) {
	stack := debug.Stack()
	panicMsg := fmt.Sprintf("%v", err)

	fields := []zap.Field{
		zap.String("panic", panicMsg),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
		zap.String("client_ip", c.ClientIP()),
		zap.String("request_id", GetRequestID(c)),
		zap.ByteString("stack", stack),
	}
	if userID, exists := GetUserID(ctx, c); exists {
		fields = append(fields, zap.String("user_id", userID))
	}
	logger.WithContext(ctx).Error("[PANIC RECOVERED]", fields...)

	span := trace.SpanFromContext(ctx)
	span.RecordError(fmt.Errorf("panic: %s", panicMsg), trace.WithStackTrace(true))
	span.SetStatus(codes.Error, "panic")

	// 生产环境不暴露 panic 内容
	if config.Cfg.IsProduction() {
		response.Error(ctx, c, errors.InternalError)
	} else {
		response.ErrorWithDetails(ctx, c, errors.InternalError, map[string]interface{}{
			"panic": panicMsg,
		})
	}
	c.Abort()
}
