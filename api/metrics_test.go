package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"prism-board/board"
	"prism-board/domain"
)

func TestDropMetricsLogProducesObservabilityEvent(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tp, exporter, restore := setupTestTracer(t)
	defer restore()

	metrics, _ := newDropMetrics(context.Background(), logger, "b1")
	metrics.start = metrics.start.Add(-20 * time.Millisecond)
	metrics.SetExplicit(true)
	metrics.ObserveResolve(2 * time.Millisecond)
	cmd := domain.NewReorder("a", "b", domain.Before)
	metrics.SetResult(board.DropResult{Applied: true, Command: &cmd})
	metrics.Log(http.StatusOK, nil)

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("force flush spans: %v", err)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Message != observabilityEvent || entry.Level != log.InfoLevel {
		t.Fatalf("unexpected log entry: %#v", entry)
	}
	if entry.Data["event.name"] != dropEventName || entry.Data["severity_number"] != 9 {
		t.Fatalf("unexpected fields: %#v", entry.Data)
	}
	attrs, ok := entry.Data["attributes"].(map[string]any)
	if !ok {
		t.Fatalf("attributes not logged as map: %#v", entry.Data["attributes"])
	}
	if attrs["http.route"] != dropRoute || attrs["prism.drop.applied"] != true || attrs["prism.drop.command_type"] != domain.ReorderTask {
		t.Fatalf("unexpected attributes: %#v", attrs)
	}
	if traceID, ok := entry.Data["trace_id"].(string); !ok || traceID == "" {
		t.Fatalf("expected trace_id, got %#v", entry.Data["trace_id"])
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != dropSpanName || span.Status.Code != codes.Ok {
		t.Fatalf("unexpected span: %s %v", span.Name, span.Status)
	}
	spanAttrs := attributesToMap(span.Attributes)
	if code, ok := spanAttrs["http.status_code"].(int64); !ok || code != http.StatusOK {
		t.Fatalf("unexpected http.status_code on span: %#v", spanAttrs["http.status_code"])
	}
	if total, ok := spanAttrs["prism.drop.total_ms"].(float64); !ok || total < 20 {
		t.Fatalf("unexpected total_ms: %#v", spanAttrs["prism.drop.total_ms"])
	}
	found := false
	for _, ev := range span.Events {
		if ev.Name == observabilityEvent {
			found = true
			if attributesToMap(ev.Attributes)["severity_text"] != "INFO" {
				t.Fatalf("unexpected event severity: %#v", ev.Attributes)
			}
		}
	}
	if !found {
		t.Fatalf("expected observability.event span event, got %#v", span.Events)
	}
}

func TestDropMetricsFailureSetsErrorStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tp, exporter, restore := setupTestTracer(t)
	defer restore()

	metrics, _ := newDropMetrics(context.Background(), logger, "b1")
	boom := errors.New("queue down")
	metrics.Fail("apply", boom)
	metrics.Log(http.StatusInternalServerError, nil)

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("force flush spans: %v", err)
	}
	span := exporter.GetSpans()[0]
	if span.Status.Code != codes.Error || span.Status.Description != boom.Error() {
		t.Fatalf("unexpected span status: %#v", span.Status)
	}
	attrs := attributesToMap(span.Attributes)
	if attrs["prism.drop.error_stage"] != "apply" || attrs["error.message"] != boom.Error() {
		t.Fatalf("unexpected attributes: %#v", attrs)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != log.ErrorLevel {
		t.Fatalf("expected error log, got %#v", entry)
	}
}

func TestSeverityForStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		err        error
		wantText   string
		wantNumber int
	}{
		{name: "ok", status: http.StatusOK, wantText: "INFO", wantNumber: 9},
		{name: "warn", status: http.StatusBadRequest, wantText: "WARN", wantNumber: 13},
		{name: "error", status: http.StatusInternalServerError, wantText: "ERROR", wantNumber: 17},
		{name: "errorFromErr", status: 0, err: errors.New("boom"), wantText: "ERROR", wantNumber: 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotText, gotNumber := severityForStatus(tt.status, tt.err)
			if gotText != tt.wantText || gotNumber != tt.wantNumber {
				t.Fatalf("severityForStatus(%d, %v) = %s/%d, want %s/%d", tt.status, tt.err, gotText, gotNumber, tt.wantText, tt.wantNumber)
			}
		})
	}
}

func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter, func()) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	return tp, exporter, func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
		otel.SetTracerProvider(prev)
	}
}

func attributesToMap(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}
