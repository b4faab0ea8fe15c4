package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/trackbeam/beacon/internal/adapter/metrics"
	"github.com/trackbeam/beacon/internal/domain/mocks"
	"github.com/trackbeam/beacon/internal/tracker"
)

// Prometheus collectors register against the global registry, so the
// package shares one instance across test functions.
var testMetrics = metrics.NewCollectorMetrics()

func TestCollectHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := testMetrics

	tests := []struct {
		name           string
		method         string
		contentType    string
		body           string
		maxSize        int64
		expectedStatus int
		expectedEvents []string
	}{
		{
			name:           "Valid Single JSON",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"page_load_id":"pl1","type":"page_view","tracking_key":"k","page":{"url":"https://example.com/"}}`,
			maxSize:        1024,
			expectedStatus: http.StatusAccepted,
			expectedEvents: []string{"session_start", "page_view"},
		},
		{
			name:        "Valid NDJSON Batch",
			method:      http.MethodPost,
			contentType: "application/x-ndjson",
			body: `{"page_load_id":"pl1","type":"page_view","page":{"url":"https://example.com/"}}` + "\n" +
				`{"page_load_id":"pl1","type":"scroll","percent":55}`,
			maxSize:        1024,
			expectedStatus: http.StatusAccepted,
			expectedEvents: []string{"session_start", "page_view", "scroll_depth", "scroll_depth"},
		},
		{
			name:        "Bad NDJSON Line Skips Signal Not Batch",
			method:      http.MethodPost,
			contentType: "application/x-ndjson",
			body: `{"page_load_id":"pl1","type":"page_view","page":{"url":"https://example.com/"}}` + "\n" +
				`{"bad json` + "\n" +
				`{"page_load_id":"pl1","type":"visibility","hidden":true}`,
			maxSize:        1024,
			expectedStatus: http.StatusAccepted,
			expectedEvents: []string{"session_start", "page_view", "page_hide"},
		},
		{
			name:           "Unknown Signal Type Accepted And Dropped",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"page_load_id":"pl1","type":"telepathy","page":{"url":"https://example.com/"}}`,
			maxSize:        1024,
			expectedStatus: http.StatusAccepted,
			expectedEvents: nil,
		},
		{
			name:           "Unsupported Content-Type",
			method:         http.MethodPost,
			contentType:    "text/plain",
			body:           `hello`,
			maxSize:        1024,
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "Bad JSON",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"type":"page_view"`,
			maxSize:        1024,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Payload Too Large",
			method:         http.MethodPost,
			contentType:    "application/json",
			body:           `{"page_load_id":"pl1","type":"page_view","page":{"url":"https://example.com/a-rather-long-path"}}`,
			maxSize:        20,
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &mocks.MockEventLog{}
			emitter := tracker.NewEmitter(log, logger, nil)
			registry := tracker.NewSessionRegistry(logger)
			h := NewCollectHandler(registry, emitter, nil, logger, m, tt.maxSize, 0, false, false)

			req := httptest.NewRequest(tt.method, "/collect", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}

			events := log.Events()
			if len(events) != len(tt.expectedEvents) {
				t.Fatalf("expected %d events, got %d", len(tt.expectedEvents), len(events))
			}
			for i, want := range tt.expectedEvents {
				if events[i].Name != want {
					t.Errorf("event %d: expected %q, got %q", i, want, events[i].Name)
				}
			}
		})
	}
}

func TestCollectHandlerSetsCookies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	log := &mocks.MockEventLog{}
	h := NewCollectHandler(tracker.NewSessionRegistry(logger), tracker.NewEmitter(log, logger, nil), nil, logger, testMetrics, 1024, 0, false, false)

	body := `{"page_load_id":"pl1","type":"page_view","page":{"url":"https://example.com/?utm_source=x"}}`
	req := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}

	id, ok := cookies["ga_client_id"]
	if !ok {
		t.Fatal("expected ga_client_id cookie to be set")
	}
	if id.MaxAge <= 0 {
		t.Errorf("expected durable client id cookie, got MaxAge %d", id.MaxAge)
	}
	if _, ok := cookies["tracking_params"]; !ok {
		t.Error("expected tracking_params cookie to be set")
	}
	started, ok := cookies["session_started"]
	if !ok {
		t.Fatal("expected session_started cookie to be set")
	}
	// Session-scoped: no MaxAge, dropped when the browser closes.
	if started.MaxAge != 0 {
		t.Errorf("expected session cookie, got MaxAge %d", started.MaxAge)
	}
}

// A page load whose only signals are scrolls must still deliver the
// session-start marker cookie in the same response: the debounced
// evaluation is flushed before the handler returns, not on a timer that
// outlives the request.
func TestCollectHandlerDebouncedScrollDeliversSessionMarker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	log := &mocks.MockEventLog{}
	h := NewCollectHandler(tracker.NewSessionRegistry(logger), tracker.NewEmitter(log, logger, nil), nil, logger, testMetrics, 1024, 50*time.Millisecond, false, false)

	body := `{"page_load_id":"pl_scroll","type":"scroll","percent":40,"page":{"url":"https://example.com/"}}`
	req := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	events := log.Events()
	if len(events) != 2 || events[0].Name != "session_start" || events[1].Name != "scroll_depth" {
		names := make([]string, len(events))
		for i, e := range events {
			names[i] = e.Name
		}
		t.Fatalf("expected [session_start scroll_depth], got %v", names)
	}

	delivered := rec.Result().Cookies()
	var marker *http.Cookie
	for _, c := range delivered {
		if c.Name == "session_started" {
			marker = c
		}
	}
	if marker == nil {
		t.Fatal("expected session_started cookie in the scroll-only response")
	}

	// A later page load replaying only the cookies the browser actually
	// received must not start a second session.
	body2 := `{"page_load_id":"pl_next","type":"page_view","page":{"url":"https://example.com/next"}}`
	req2 := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(body2))
	req2.Header.Set("Content-Type", "application/json")
	for _, c := range delivered {
		req2.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec2 := httptest.NewRecorder()

	h.ServeHTTP(rec2, req2)

	starts := 0
	for _, e := range log.Events() {
		if e.Name == "session_start" {
			starts++
		}
	}
	if starts != 1 {
		t.Errorf("expected exactly 1 session_start across the browser session, got %d", starts)
	}
}

func TestCollectHandlerRequireKnownKeys(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	keys := &mocks.MockTrackingKeyRepository{ValidKeys: map[string]bool{"k_good": true}}

	tests := []struct {
		name        string
		trackingKey string
		wantEvents  int
	}{
		{"Known Key Applied", "k_good", 2},
		{"Unknown Key Dropped", "k_bad", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &mocks.MockEventLog{}
			h := NewCollectHandler(tracker.NewSessionRegistry(logger), tracker.NewEmitter(log, logger, nil), keys, logger, testMetrics, 1024, 0, false, true)

			body := `{"page_load_id":"pl1","type":"page_view","tracking_key":"` + tt.trackingKey + `","page":{"url":"https://example.com/"}}`
			req := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusAccepted {
				t.Fatalf("expected status 202, got %d", rec.Code)
			}
			if got := len(log.Events()); got != tt.wantEvents {
				t.Errorf("expected %d events, got %d", tt.wantEvents, got)
			}
		})
	}
}

func TestCollectHandlerReusesAnalyticsCookieIdentity(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	log := &mocks.MockEventLog{}
	h := NewCollectHandler(tracker.NewSessionRegistry(logger), tracker.NewEmitter(log, logger, nil), nil, logger, testMetrics, 1024, 0, false, false)

	body := `{"page_load_id":"pl1","type":"page_view","page":{"url":"https://example.com/"}}`
	req := httptest.NewRequest(http.MethodPost, "/collect", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "_ga", Value: "GA1.2.123.456"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	events := log.Events()
	if len(events) == 0 {
		t.Fatal("expected events to be emitted")
	}
	for _, e := range events {
		if e.ClientID != "123.456" {
			t.Errorf("expected client id from analytics cookie, got %q", e.ClientID)
		}
	}
}
