package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "J*", MaskPII("Jo"))
	assert.Equal(t, "J**e", MaskPII("Jane"))
	assert.Equal(t, "ja************om", MaskPII("jane@example.com"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abc", TruncateString("abcdef", 3))
	assert.Equal(t, "ab...gh", TruncateString("abcdefgh", 7))
}

func TestSafeAttributeValue(t *testing.T) {
	assert.Equal(t, "ja************om", SafeAttributeValue("resume.email", "jane@example.com", 100))
	assert.Equal(t, "J**e", SafeAttributeValue("Name", "Jane", 100))
	assert.Equal(t, "resume.pdf", SafeAttributeValue("input.path", "resume.pdf", 100))
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), "op")

	RecordError(span, errors.New("ner unavailable"), ErrorTypeNER, attribute.String("ner.url", "http://ner"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "ner", attrs["error.type"].AsString())
	assert.Equal(t, "http://ner", attrs["ner.url"].AsString())
}

func TestRecordErrorNil(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError(nil, errors.New("x"), ErrorTypeInternal)
		RecordHTTPError(nil, nil, 500)
		RecordRabbitMQNack(nil, "id", "")
	})
}

func TestInitProviderDisabled(t *testing.T) {
	shutdown, err := InitProvider(context.Background(), ProviderConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
