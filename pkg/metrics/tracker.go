package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 以下函数在指标未初始化时直接忽略

func RecordCheckIn(ctx context.Context, backend, outcome string, seconds float64) {
	if m := GetMetrics(); m != nil {
		m.RecordCheckIn(ctx, backend, outcome, seconds)
	}
}

func RecordCheckInRetry(ctx context.Context) {
	if m := GetMetrics(); m != nil {
		m.TrackerCheckInRetries.Add(ctx, 1)
	}
}

func RecordJoin(ctx context.Context, outcome string) {
	if m := GetMetrics(); m != nil {
		m.TrackerJoinTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordLeave(ctx context.Context, policy, outcome string) {
	if m := GetMetrics(); m != nil {
		m.TrackerLeaveTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("policy", policy),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordCompletion(ctx context.Context) {
	if m := GetMetrics(); m != nil {
		m.TrackerCompletionTotal.Add(ctx, 1)
	}
}

func RecordStreakResets(ctx context.Context, n int64) {
	if m := GetMetrics(); m != nil && n > 0 {
		m.TrackerStreakResetTotal.Add(ctx, n)
	}
}

func RecordEventPublished(ctx context.Context, routingKey, outcome string) {
	if m := GetMetrics(); m != nil {
		m.EventPublishTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("routing_key", routingKey),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordEventConsumed(ctx context.Context, kind, outcome string) {
	if m := GetMetrics(); m != nil {
		m.EventConsumedTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
}
