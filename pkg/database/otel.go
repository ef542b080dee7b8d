package database

import (
	"context"
	stderrors "errors"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var (
	// 数据库相关指标，未初始化时不记录
	dbQueriesTotal  metric.Int64Counter
	dbQueryDuration metric.Float64Histogram

	sensitiveAssign = regexp.MustCompile(`(?i)(password|token|secret)\s*=\s*'[^']*'`)
)

// InitDatabaseMetrics 初始化数据库指标
func InitDatabaseMetrics(meter metric.Meter) error {
	var err error

	dbQueriesTotal, err = meter.Int64Counter(
		"db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return err
	}

	dbQueryDuration, err = meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	return err
}

// OTELPlugin GORM OpenTelemetry 插件
type OTELPlugin struct {
	tracer trace.Tracer
	config PluginConfig
}

// PluginConfig 插件配置
type PluginConfig struct {
	ServiceName   string
	EnableMetrics bool
	MaxSQLLength  int
}

// DefaultPluginConfig 默认插件配置
func DefaultPluginConfig() PluginConfig {
	return PluginConfig{
		ServiceName:   "challengeup",
		EnableMetrics: true,
		MaxSQLLength:  500,
	}
}

// NewOTELPlugin 创建插件实例
func NewOTELPlugin(config PluginConfig) *OTELPlugin {
	if config.ServiceName == "" {
		config.ServiceName = "challengeup"
	}
	if config.MaxSQLLength <= 0 {
		config.MaxSQLLength = 500
	}

	return &OTELPlugin{
		tracer: otel.Tracer(config.ServiceName + ".gorm"),
		config: config,
	}
}

// Name 实现 gorm.Plugin 接口
func (p *OTELPlugin) Name() string {
	return "otel_plugin"
}

// Initialize 注册回调，span 名按回调类型区分
func (p *OTELPlugin) Initialize(db *gorm.DB) error {
	callbacks := db.Callback()

	register := []struct {
		op       string
		before   func(name string, fn func(*gorm.DB)) error
		after    func(name string, fn func(*gorm.DB)) error
		callback string
	}{
		{"select", callbacks.Query().Before("gorm:query").Register, callbacks.Query().After("gorm:query").Register, "query"},
		{"insert", callbacks.Create().Before("gorm:create").Register, callbacks.Create().After("gorm:create").Register, "create"},
		{"update", callbacks.Update().Before("gorm:update").Register, callbacks.Update().After("gorm:update").Register, "update"},
		{"delete", callbacks.Delete().Before("gorm:delete").Register, callbacks.Delete().After("gorm:delete").Register, "delete"},
		{"row", callbacks.Row().Before("gorm:row").Register, callbacks.Row().After("gorm:row").Register, "row"},
		{"raw", callbacks.Raw().Before("gorm:raw").Register, callbacks.Raw().After("gorm:raw").Register, "raw"},
	}

	for _, r := range register {
		if err := r.before("otel:before_"+r.callback, p.beforeCallback("db."+r.op)); err != nil {
			return err
		}
		if err := r.after("otel:after_"+r.callback, p.afterCallback("db."+r.op)); err != nil {
			return err
		}
	}
	return nil
}

func (p *OTELPlugin) beforeCallback(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		attrs := []attribute.KeyValue{
			semconv.DBSystemPostgreSQL,
			attribute.String("service.name", p.config.ServiceName),
		}
		if table := db.Statement.Table; table != "" {
			attrs = append(attrs, attribute.String("db.table", table))
		}

		ctx, span := p.tracer.Start(db.Statement.Context, operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...),
		)

		db.InstanceSet("otel:start_time", time.Now())
		db.InstanceSet("otel:span", span)
		db.Statement.Context = ctx
	}
}

func (p *OTELPlugin) afterCallback(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		spanI, ok := db.InstanceGet("otel:span")
		if !ok {
			return
		}
		span, ok := spanI.(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		// 执行后 SQL 才完整
		span.SetAttributes(
			semconv.DBStatement(p.SanitizeSQL(db.Statement.SQL.String())),
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
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}

		if !p.config.EnableMetrics {
			return
		}
		if startI, ok := db.InstanceGet("otel:start_time"); ok {
			if start, ok := startI.(time.Time); ok {
				recordMetrics(db.Statement.Context, operation, status, time.Since(start).Seconds())
			}
		}
	}
}

// SanitizeSQL 截断并隐藏敏感赋值
func (p *OTELPlugin) SanitizeSQL(sql string) string {
	if len(sql) > p.config.MaxSQLLength {
		sql = sql[:p.config.MaxSQLLength] + "..."
	}
	return sensitiveAssign.ReplaceAllString(sql, "$1='***'")
}

func recordMetrics(ctx context.Context, operation, status string, duration float64) {
	if dbQueriesTotal == nil || dbQueryDuration == nil {
		return
	}

	labels := metric.WithAttributes(
		attribute.String("db.operation", operation),
		attribute.String("db.status", status),
	)
	dbQueriesTotal.Add(ctx, 1, labels)
	dbQueryDuration.Record(ctx, duration, labels)
}

// WithOTELPlugin 为 GORM 添加 OpenTelemetry 插件
func WithOTELPlugin(db *gorm.DB, config PluginConfig) error {
	return db.Use(NewOTELPlugin(config))
}

// WithDefaultOTELPlugin 使用默认配置添加 OpenTelemetry 插件
func WithDefaultOTELPlugin(db *gorm.DB, serviceName string) error {
	config := DefaultPluginConfig()
	config.ServiceName = serviceName
	return WithOTELPlugin(db, config)
}
