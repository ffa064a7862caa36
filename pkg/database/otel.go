package database

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey  = "otel:span"
	startKey = "otel:start_time"

	maxStatementLength = 500
)

// TracingPlugin 为每条 SQL 创建 client span，并记录查询次数与耗时
// SQL 参数不进入 span，避免邮箱、手机号密文等落入链路数据
type TracingPlugin struct {
	tracer        trace.Tracer
	queries       metric.Int64Counter
	queryDuration metric.Float64Histogram
	dbName        string
}

func NewTracingPlugin(serviceName, dbName string) (*TracingPlugin, error) {
	meter := otel.Meter(serviceName + ".gorm")

	queries, err := meter.Int64Counter("db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	queryDuration, err := meter.Float64Histogram("db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return nil, err
	}

	return &TracingPlugin{
		tracer:        otel.Tracer(serviceName + ".gorm"),
		queries:       queries,
		queryDuration: queryDuration,
		dbName:        dbName,
	}, nil
}

// Name 实现 gorm.Plugin 接口
func (p *TracingPlugin) Name() string {
	return "otel_tracing"
}

// Initialize 注册回调
func (p *TracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		if err := h.before("otel:before_"+h.name, p.before); err != nil {
			return err
		}
		if err := h.after("otel:after_"+h.name, p.after); err != nil {
			return err
		}
	}
	return nil
}

func (p *TracingPlugin) before(db *gorm.DB) {
	ctx, span := p.tracer.Start(db.Statement.Context, "db.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBName(p.dbName),
		),
	)
	db.InstanceSet(spanKey, span)
	db.InstanceSet(startKey, time.Now())
	db.Statement.Context = ctx
}

func (p *TracingPlugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	op := operation(db)
	span.SetName("db." + op)
	statement := db.Statement.SQL.String()
	if len(statement) > maxStatementLength {
		statement = statement[:maxStatementLength] + "..."
	}
	span.SetAttributes(
		semconv.DBStatement(statement),
		semconv.DBOperation(op),
		attribute.String("db.table", db.Statement.Table),
		attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
	)

	status := "success"
	switch {
	case db.Error == nil:
		span.SetStatus(codes.Ok, "")
	case stderrors.Is(db.Error, gorm.ErrRecordNotFound):
		span.SetStatus(codes.Ok, "record not found")
	default:
		status = "error"
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}

	if start, ok := db.InstanceGet(startKey); ok {
		if t, ok := start.(time.Time); ok {
			p.record(db.Statement.Context, op, status, time.Since(t).Seconds())
		}
	}
}

func (p *TracingPlugin) record(ctx context.Context, op, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("db.operation", op),
		attribute.String("db.status", status),
	)
	p.queries.Add(ctx, 1, attrs)
	p.queryDuration.Record(ctx, seconds, attrs)
}

// operation 从 SQL 前缀判断操作类型，before 阶段 SQL 尚未生成时返回 query
func operation(db *gorm.DB) string {
	sql := strings.TrimSpace(db.Statement.SQL.String())
	if len(sql) < 6 {
		return "query"
	}
	switch strings.ToUpper(sql[:6]) {
	case "SELECT":
		return "select"
	case "INSERT":
		return "insert"
	case "UPDATE":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return "query"
	}
}
