package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracer_Disabled(t *testing.T) {
	tp, shutdown, err := InitTracer(TracerConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := InitTracer(TracerConfig{Enabled: true, ServiceName: "actiond-test", Writer: &buf}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "invoke greeter.Hello")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "invoke greeter.Hello")
	assert.Contains(t, buf.String(), "actiond-test")
}

func TestLogFields(t *testing.T) {
	ctx, lf := WithLogFields(context.Background())

	AddLogField(ctx, "action", "greeter.Hello")
	AddLogField(ctx, "empty", "")
	AddError(ctx, errors.New("boom"))
	AddError(ctx, nil)

	assert.Equal(t, map[string]string{"action": "greeter.Hello", "error": "boom"}, lf.Snapshot())
}

func TestLogFields_NoFieldSet(t *testing.T) {
	assert.NotPanics(t, func() {
		AddLogField(context.Background(), "action", "x")
	})
}
