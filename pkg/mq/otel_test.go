package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrierRoundTrip(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	prop := propagation.TraceContext{}
	carrier := &MessageHeaderCarrier{}
	prop.Inject(ctx, carrier)
	assert.NotEmpty(t, carrier.Get("traceparent"))
	assert.Contains(t, carrier.Keys(), "traceparent")

	delivered := &MessageHeaderCarrier{Headers: amqp.Table(carrier.Headers)}
	restored := trace.SpanContextFromContext(prop.Extract(context.Background(), delivered))
	assert.Equal(t, span.SpanContext().TraceID(), restored.TraceID())
}

func TestHeaderCarrierIgnoresNonString(t *testing.T) {
	c := &MessageHeaderCarrier{Headers: amqp.Table{"x-retry": int32(3)}}
	assert.Equal(t, "", c.Get("x-retry"))
}
