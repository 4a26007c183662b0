package apiclient

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName         = "projectboard/apiclient"
	requestEventName   = "api.request"
	requestEventDomain = "projectboard.client"
)

type requestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	method         string
	route          string
	requestID      string
	status         int
	encodeDuration time.Duration
	roundTripDur   time.Duration
	decodeDuration time.Duration
	errorStage     string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, method, route string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("http.route", route),
		),
	)
	return &requestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
		method: method,
		route:  route,
	}, spanCtx
}

func (m *requestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *requestMetrics) ObserveRoundTrip(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.roundTripDur = duration
}

func (m *requestMetrics) ObserveDecode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.decodeDuration = duration
}

func (m *requestMetrics) SetRequestID(id string) {
	m.requestID = id
}

func (m *requestMetrics) SetStatus(status int) {
	m.status = status
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *requestMetrics) attributes(err error) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", m.method),
		attribute.String("http.route", m.route),
		attribute.Float64("projectboard.request.total_ms", durationToMillis(time.Since(m.start))),
	}
	if m.status != 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", m.status))
	}
	if m.requestID != "" {
		attrs = append(attrs, attribute.String("projectboard.request.id", m.requestID))
	}
	if m.encodeDuration > 0 {
		attrs = append(attrs, attribute.Float64("projectboard.request.encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.roundTripDur > 0 {
		attrs = append(attrs, attribute.Float64("projectboard.request.round_trip_ms", durationToMillis(m.roundTripDur)))
	}
	if m.decodeDuration > 0 {
		attrs = append(attrs, attribute.Float64("projectboard.request.decode_ms", durationToMillis(m.decodeDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("projectboard.request.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}
	return attrs
}

// Finish ends the span and writes one structured log line for the request.
func (m *requestMetrics) Finish(err error) {
	if m == nil {
		return
	}
	attrs := m.attributes(err)

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	severityText, severityNumber := severityForStatus(m.status, err)
	fields := log.Fields{
		"event.name":      requestEventName,
		"event.domain":    requestEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attributesToMap(attrs),
	}
	if sc := m.span.SpanContext(); sc.HasTraceID() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
	}
	m.logger.WithFields(fields).Log(levelForSeverity(severityText), "observability.event")
}

// severityForStatus maps a response to OpenTelemetry log severity. A 4xx is
// the caller's problem and logged as a warning.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	case err != nil:
		return "ERROR", 17
	default:
		return "INFO", 9
	}
}

func levelForSeverity(text string) log.Level {
	switch text {
	case "ERROR":
		return log.ErrorLevel
	case "WARN":
		return log.WarnLevel
	default:
		return log.DebugLevel
	}
}

func attributesToMap(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
