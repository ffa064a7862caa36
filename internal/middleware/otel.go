package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// httpMetrics 请求级指标
type httpMetrics struct {
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
	responseSize metric.Int64Histogram
	active       metric.Int64UpDownCounter
	// 按业务错误码统计，便于观察 VALIDATION_FAILED / RATE_LIMITED 的比例
	errorCodes metric.Int64Counter
}

var serverMetrics *httpMetrics

// InitMetrics 初始化指标
func InitMetrics(meter metric.Meter) error {
	m := &httpMetrics{}
	var err error

	if m.requests, err = meter.Int64Counter("http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	if m.duration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	); err != nil {
		return err
	}

	if m.responseSize, err = meter.Int64Histogram("http.server.response.size",
		metric.WithDescription("HTTP response size"),
		metric.WithUnit("By"),
	); err != nil {
		return err
	}

	if m.active, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	if m.errorCodes, err = meter.Int64Counter("http.server.error_codes.total",
		metric.WithDescription("Error responses by business error code"),
		metric.WithUnit("{response}"),
	); err != nil {
		return err
	}

	serverMetrics = m
	return nil
}

// OpenTelemetryMiddleware 请求 span 与指标
// route 标签取路由模板（/v1/patients/:patient_id/interface），不会随 id 膨胀
func OpenTelemetryMiddleware() app.HandlerFunc {
	tracer := otel.Tracer("quilt.http")

	return func(ctx context.Context, c *app.RequestContext) {
		m := serverMetrics
		if m == nil {
			c.Next(ctx)
			return
		}

		start := time.Now()
		m.active.Add(ctx, 1)
		defer m.active.Add(ctx, -1)

		method := string(c.Method())
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		spanCtx, span := tracer.Start(ctx, method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(method),
				semconv.HTTPRoute(route),
				attribute.String("http.request_id", GetRequestID(c)),
				attribute.String("http.user_agent", strings.ToValidUTF8(string(c.UserAgent()), "")),
			),
		)
		defer span.End()

		c.Next(spanCtx)

		// 认证中间件在后面执行，这里才能拿到用户 ID
		if userID, ok := GetUserID(spanCtx, c); ok {
			span.SetAttributes(attribute.String("enduser.id", userID))
		}

		status := c.Response.StatusCode()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		switch {
		case status >= 500:
			span.SetStatus(codes.Error, "server error")
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(lastErr)
			}
		case status >= 400:
			span.SetStatus(codes.Error, "client error")
		default:
			span.SetStatus(codes.Ok, "")
		}

		attrs := metric.WithAttributes(
			semconv.HTTPMethod(method),
			semconv.HTTPRoute(route),
			semconv.HTTPStatusCode(status),
		)
		m.requests.Add(ctx, 1, attrs)
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		m.responseSize.Record(ctx, int64(len(c.Response.Body())), attrs)

		if status >= 400 {
			if code := errorCode(c.Response.Body()); code != "" {
				m.errorCodes.Add(ctx, 1, metric.WithAttributes(
					semconv.HTTPRoute(route),
					attribute.String("error.code", code),
				))
			}
		}
	}
}

// errorCode 从错误响应体里取 "code"，避免为一个字段整体反序列化
func errorCode(body []byte) string {
	const key = `"code":"`
	s := string(body)
	i := strings.Index(s, key)
	if i < 0 {
		return ""
	}
	s = s[i+len(key):]
	j := strings.IndexByte(s, '"')
	if j <= 0 || j > 64 {
		return ""
	}
	return s[:j]
}

// NewServerTracerConfig 创建 Hertz Server 的追踪配置
// 返回用于初始化 Hertz server 的配置选项和追踪中间件
func NewServerTracerConfig(opts ...hertztracing.Option) (config.Option, app.HandlerFunc) {
	tracer, cfg := hertztracing.NewServerTracer(opts...)
	return tracer, hertztracing.ServerMiddleware(cfg)
}
