package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 参与与打卡相关指标
	TrackerCheckInTotal     metric.Int64Counter
	TrackerCheckInDuration  metric.Float64Histogram
	TrackerCheckInRetries   metric.Int64Counter
	TrackerJoinTotal        metric.Int64Counter
	TrackerLeaveTotal       metric.Int64Counter
	TrackerCompletionTotal  metric.Int64Counter
	TrackerStreakResetTotal metric.Int64Counter

	// 事件相关指标
	EventPublishTotal  metric.Int64Counter
	EventConsumedTotal metric.Int64Counter
}

var (
	// 全局指标实例
	metrics *OTelMetrics
	// meter 用于创建指标
	meter = otel.Meter("challengeup")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	m := &OTelMetrics{}
	var err error

	m.TrackerCheckInTotal, err = meter.Int64Counter(
		"tracker.check_ins",
		metric.WithDescription("Check-in attempts by outcome"),
		metric.WithUnit("{check_in}"),
	)
	if err != nil {
		return err
	}

	m.TrackerCheckInDuration, err = meter.Float64Histogram(
		"tracker.check_in.duration",
		metric.WithDescription("Time spent handling a check-in in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.TrackerCheckInRetries, err = meter.Int64Counter(
		"tracker.check_in.retries",
		metric.WithDescription("Compare-and-swap retries caused by concurrent writers"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return err
	}

	m.TrackerJoinTotal, err = meter.Int64Counter(
		"tracker.joins",
		metric.WithDescription("Join attempts by outcome"),
		metric.WithUnit("{join}"),
	)
	if err != nil {
		return err
	}

	m.TrackerLeaveTotal, err = meter.Int64Counter(
		"tracker.leaves",
		metric.WithDescription("Leave attempts by outcome"),
		metric.WithUnit("{leave}"),
	)
	if err != nil {
		return err
	}

	m.TrackerCompletionTotal, err = meter.Int64Counter(
		"tracker.completions",
		metric.WithDescription("Participations that reached 100 percent"),
		metric.WithUnit("{participation}"),
	)
	if err != nil {
		return err
	}

	m.TrackerStreakResetTotal, err = meter.Int64Counter(
		"tracker.streak_resets",
		metric.WithDescription("Streaks reset by the daily job"),
		metric.WithUnit("{participation}"),
	)
	if err != nil {
		return err
	}

	m.EventPublishTotal, err = meter.Int64Counter(
		"events.published",
		metric.WithDescription("Participation events published by outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	m.EventConsumedTotal, err = meter.Int64Counter(
		"events.consumed",
		metric.WithDescription("Participation events consumed by outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	metrics = m
	return nil
}

// GetMetrics 获取全局指标实例，未初始化时为 nil
func GetMetrics() *OTelMetrics {
	return metrics
}

func (m *OTelMetrics) RecordCheckIn(ctx context.Context, backend, outcome string, seconds float64) {
	m.TrackerCheckInTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("outcome", outcome),
	))
	m.TrackerCheckInDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("backend", backend),
	))
}
