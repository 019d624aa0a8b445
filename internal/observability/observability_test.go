package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := GlobalLogger
	buf := &bytes.Buffer{}
	SetLogger(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { GlobalLogger = prev })
	return buf
}

func TestLogTransition_LevelsByOutcome(t *testing.T) {
	buf := captureLogs(t)

	LogTransition(context.Background(), 7, "approve", "submitted", "manager_review", OutcomeApplied, nil)
	assert.Contains(t, buf.String(), `"msg":"request transitioned"`)
	assert.Contains(t, buf.String(), `"request_id":7`)

	buf.Reset()
	LogTransition(context.Background(), 7, "approve", "submitted", "", OutcomeConflict, errors.New("stale"))
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"error":"stale"`)

	buf.Reset()
	LogTransition(context.Background(), 7, "approve", "submitted", "", OutcomeError, errors.New("boom"))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestRepoLogger_RespectsConfig(t *testing.T) {
	buf := captureLogs(t)
	l := NewRepoLogger("requests")

	l.LogCreate(context.Background(), map[string]interface{}{"id": 1})
	assert.Contains(t, buf.String(), `"table":"requests"`)

	buf.Reset()
	Config.EnableRepoLogging = false
	t.Cleanup(func() { Config.EnableRepoLogging = true })
	l.LogDelete(context.Background(), map[string]interface{}{"id": 1})
	assert.Empty(t, buf.String())
}

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(TransitionsTotal.WithLabelValues("reject", string(OutcomeApplied)))
	beforeStatus := testutil.ToFloat64(RequestsByStatus.WithLabelValues("rejected"))

	RecordTransition("reject", "rejected", OutcomeApplied, time.Now())
	RecordTransition("reject", "", OutcomeForbidden, time.Now())

	assert.Equal(t, before+1, testutil.ToFloat64(TransitionsTotal.WithLabelValues("reject", string(OutcomeApplied))))
	assert.Equal(t, beforeStatus+1, testutil.ToFloat64(RequestsByStatus.WithLabelValues("rejected")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(TransitionsTotal.WithLabelValues("reject", string(OutcomeForbidden))), 1.0)
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "approvals-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := Tracer
	Tracer = tp.Tracer("approvals-test")
	t.Cleanup(func() {
		Tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestTransitionSpanHelpers(t *testing.T) {
	rec := useRecorder(t)

	ctx, span := GetTraceLayer().TraceRepositoryMethod(context.Background(), "ApplyTransition", "requests")
	AnnotateTransition(ctx, 9, "submitted", "manager_review")
	MarkStale(ctx)
	span.End()

	ctx, span = GetTraceLayer().TraceServiceCall(context.Background(), "ApprovalService", "Apply")
	RecordErrorInContext(ctx, nil)
	RecordErrorInContext(ctx, errors.New("db down"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 2)

	stale := ended[0]
	assert.Equal(t, "repository.ApplyTransition", stale.Name())
	assert.Equal(t, codes.Error, stale.Status().Code)
	assert.Empty(t, stale.Events())
	assert.Contains(t, stale.Attributes(), attribute.Int64("request.id", 9))
	assert.Contains(t, stale.Attributes(), attribute.String("request.to", "manager_review"))
	assert.Contains(t, stale.Attributes(), attribute.Bool("request.stale", true))

	failed := ended[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "db down", failed.Status().Description)
	require.Len(t, failed.Events(), 1)
	assert.Equal(t, "exception", failed.Events()[0].Name)
}
