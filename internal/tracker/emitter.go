package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trackbeam/beacon/internal/adapter/metrics"
	"github.com/trackbeam/beacon/internal/domain"
)

// sdkTag identifies this collector in emitted envelopes.
const sdkTag = "beacon-go"

// Emitter assembles canonical event envelopes and appends them to the
// shared data layer. Emission is fire-and-forget: append failures are
// logged and counted, never surfaced to the caller, since instrumentation
// must not disrupt the host page.
type Emitter struct {
	log       domain.EventLog
	logger    *slog.Logger
	metrics   *metrics.CollectorMetrics
	observers []func(domain.Event)
	now       func() time.Time
}

// NewEmitter creates an Emitter. metrics may be nil.
func NewEmitter(log domain.EventLog, logger *slog.Logger, m *metrics.CollectorMetrics) *Emitter {
	return &Emitter{
		log:     log,
		logger:  logger.With("component", "emitter"),
		metrics: m,
		now:     time.Now,
	}
}

// AddObserver registers a callback invoked after every successful append,
// used to fan envelopes out to live consumers such as the SSE feed.
func (e *Emitter) AddObserver(fn func(domain.Event)) {
	e.observers = append(e.observers, fn)
}

// Emit builds the envelope for the session and appends it to the data
// layer exactly once.
func (e *Emitter) Emit(ctx context.Context, s *Session, name string, data map[string]string) {
	event := e.buildEnvelope(s, name, data)

	if err := e.log.Append(ctx, event); err != nil {
		e.logger.Error("failed to append event to data layer", "event", name, "error", err)
		if e.metrics != nil {
			e.metrics.AppendFailures.Inc()
		}
		return
	}

	if e.metrics != nil {
		e.metrics.EventsTotal.WithLabelValues(event.Name).Inc()
	}
	for _, observe := range e.observers {
		observe(event)
	}
}

func (e *Emitter) noteSensitiveDropped(n int) {
	if e.metrics != nil {
		e.metrics.SensitiveFieldsDropped.Add(float64(n))
	}
}

// buildEnvelope merges, in order: fixed metadata, identity, page context,
// timestamp, the current attribution record and ad classification, then
// the event-specific data. Event data wins on key collision with the
// canonical fields; remaining keys land in the envelope's fields object.
func (e *Emitter) buildEnvelope(s *Session, name string, data map[string]string) domain.Event {
	event := domain.Event{
		ID:           uuid.NewString(),
		Name:         name,
		ActivityType: name,
		TrackingKey:  s.Config.TrackingKey,
		Env:          s.Config.Env,
		SDK:          sdkTag,
		ClientID:     s.ClientID,
		URL:          s.Page.URL,
		Title:        s.Page.Title,
		Referrer:     s.Page.Referrer,
		Timestamp:    e.now().UTC().Format(time.RFC3339),
		Attribution:  s.Attribution,
		AdPlatform:   s.AdPlatform,
	}

	fields := make(map[string]string, len(data))
	for key, value := range data {
		switch key {
		case "event":
			event.Name = value
		case "activity_type":
			event.ActivityType = value
		case "client_id":
			event.ClientID = value
		case "url":
			event.URL = value
		case "title":
			event.Title = value
		case "referrer":
			event.Referrer = value
		case "timestamp":
			event.Timestamp = value
		default:
			fields[key] = value
		}
	}
	if len(fields) > 0 {
		event.Fields = fields
	}

	return event
}
