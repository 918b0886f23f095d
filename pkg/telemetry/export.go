package telemetry

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "presence.service/worker"

// Export identifies the timesheet export a queued event belongs to.
type Export struct {
	ID         string `json:"exportId"`
	EmployeeID string `json:"employeeId"`
}

// Attributes returns the span attributes naming e. Empty fields are left out.
func (e Export) Attributes() []attribute.KeyValue {
	var kv []attribute.KeyValue
	if e.ID != "" {
		kv = append(kv, attribute.String("presence.export_id", e.ID))
	}
	if e.EmployeeID != "" {
		kv = append(kv, attribute.String("presence.employee_id", e.EmployeeID))
	}
	return kv
}

type exportKey struct{}

// WithExport stores e in ctx.
func WithExport(ctx context.Context, e Export) context.Context {
	return context.WithValue(ctx, exportKey{}, e)
}

// ExportFrom returns the export stored in ctx, or the zero Export.
func ExportFrom(ctx context.Context) Export {
	e, _ := ctx.Value(exportKey{}).(Export)
	return e
}

// MessageAttributes encodes the trace context of ctx as queue message attributes.
func MessageAttributes(ctx context.Context) map[string]types.MessageAttributeValue {
	attrs := attributeCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, attrs)
	return attrs
}

// ConsumeSpan continues the producer's trace for a message taken from queue. The export
// named in the body, if any, is recorded on the span and stored in the returned context.
func ConsumeSpan(ctx context.Context, queue string, msg types.Message) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, attributeCarrier(msg.MessageAttributes))

	var export Export
	if msg.Body != nil {
		_ = json.Unmarshal([]byte(*msg.Body), &export)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "presence.export process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "aws_sqs"),
			attribute.String("messaging.operation", "process"),
			attribute.String("messaging.destination.name", queue),
			attribute.String("messaging.message.id", aws.ToString(msg.MessageId)),
		),
		trace.WithAttributes(export.Attributes()...),
	)
	return WithExport(ctx, export), span
}

// attributeCarrier adapts queue message attributes to propagation.TextMapCarrier.
type attributeCarrier map[string]types.MessageAttributeValue

func (c attributeCarrier) Get(key string) string {
	return aws.ToString(c[key].StringValue)
}

func (c attributeCarrier) Set(key, value string) {
	c[key] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(value)}
}

func (c attributeCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
