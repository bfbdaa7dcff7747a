package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"prism-board/board"
)

const (
	tracerName         = "prism-board/api"
	observabilityEvent = "observability.event"

	dropSpanName    = "board.drop"
	dropEventName   = "prism.board.drop"
	dropEventDomain = "app"
	dropRoute       = "/api/boards/:board/drag/drop"
)

// dropMetrics records one drop request as a span plus an observability event log line.
type dropMetrics struct {
	logger          *log.Logger
	span            trace.Span
	start           time.Time
	boardID         string
	resolveDuration time.Duration
	explicit        bool
	applied         bool
	reason          string
	commandType     string
	errorStage      string
	cause           error
}

func newDropMetrics(ctx context.Context, logger *log.Logger, boardID string) (*dropMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, dropSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &dropMetrics{
		logger:  logger,
		span:    span,
		start:   time.Now(),
		boardID: boardID,
	}, spanCtx
}

func (m *dropMetrics) ObserveResolve(d time.Duration) {
	if d <= 0 {
		return
	}
	m.resolveDuration = d
}

func (m *dropMetrics) SetExplicit(explicit bool) { m.explicit = explicit }

func (m *dropMetrics) SetResult(res board.DropResult) {
	m.applied = res.Applied
	m.reason = res.Reason
	if res.Command != nil {
		m.commandType = res.Command.Type
	}
}

// Fail records the stage a request failed at and the underlying error, if any.
func (m *dropMetrics) Fail(stage string, err error) {
	if stage != "" {
		m.errorStage = stage
	}
	if err != nil {
		m.cause = err
	}
}

func (m *dropMetrics) attributes(status int, err error) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.route", dropRoute),
		attribute.Int("http.status_code", status),
		attribute.String("prism.board.id", m.boardID),
		attribute.Float64("prism.drop.total_ms", durationToMillis(time.Since(m.start))),
		attribute.Bool("prism.drop.explicit", m.explicit),
		attribute.Bool("prism.drop.applied", m.applied),
	}
	if m.resolveDuration > 0 {
		attrs = append(attrs, attribute.Float64("prism.drop.resolve_ms", durationToMillis(m.resolveDuration)))
	}
	if m.reason != "" {
		attrs = append(attrs, attribute.String("prism.drop.reason", m.reason))
	}
	if m.commandType != "" {
		attrs = append(attrs, attribute.String("prism.drop.command_type", m.commandType))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("prism.drop.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}
	return attrs
}

// Log ends the span and emits the observability event. err falls back to the error given
// to Fail when the handler itself returned none.
func (m *dropMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	if err == nil {
		err = m.cause
	}
	attrs := m.attributes(status, err)
	severityText, severityNumber := severityForStatus(status, err)

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", dropEventName),
			attribute.String("event.domain", dropEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		m.span.AddEvent(observabilityEvent, trace.WithAttributes(eventAttrs...))
		if severityText == "ERROR" {
			msg := http.StatusText(status)
			if err != nil {
				msg = err.Error()
			}
			m.span.SetStatus(codes.Error, msg)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	attrMap := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		attrMap[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      dropEventName,
		"event.domain":    dropEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrMap,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}
	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error(observabilityEvent)
	case "WARN":
		entry.Warn(observabilityEvent)
	default:
		entry.Info(observabilityEvent)
	}
}

// severityForStatus maps a response to OpenTelemetry log severity text and number.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	case status == 0 && err != nil:
		return "ERROR", 17
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
