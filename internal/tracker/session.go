package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/trackbeam/beacon/internal/domain"
)

// Session owns the tracker state for one page load: the resolved identity,
// attribution and configuration, plus the dedup guards (session marker,
// form-start flag, scroll seen-set, exit-intent flag). Guards are checked
// and set under the session mutex, so each signal runs to completion
// before the next one is applied — the server-side stand-in for the
// browser event loop's run-to-completion guarantee.
type Session struct {
	ID          string
	Config      Config
	Page        domain.PageContext
	ClientID    string
	Attribution domain.AttributionRecord
	AdPlatform  domain.AdPlatformClassification
	StartedAt   time.Time

	logger *slog.Logger
	now    func() time.Time

	mu              sync.Mutex
	lastSeen        time.Time
	sessionStarted  bool
	formStarted     bool
	exitIntentFired bool
	scrollSeen      map[int]bool
	maxScroll       float64
	scrollDebounce  *Debouncer
}

// NewSession constructs the per-page-load session. Identity and
// attribution are resolved once here and cached for the session's
// lifetime. A non-positive scrollDebounce makes scroll evaluation
// synchronous, which tests rely on.
func NewSession(id string, cfg Config, page domain.PageContext, analyticsCookie string, store domain.StateStore, scrollDebounce time.Duration, logger *slog.Logger) *Session {
	s := &Session{
		ID:         id,
		Config:     cfg,
		Page:       page,
		StartedAt:  time.Now(),
		logger:     logger.With("component", "session", "page_load_id", id),
		now:        time.Now,
		scrollSeen: make(map[int]bool),
	}
	s.lastSeen = s.StartedAt

	s.ClientID = GetOrCreateClientID(analyticsCookie, store)
	s.Attribution = ResolveAttribution(page.URL, store)
	s.AdPlatform = ClassifyAdPlatform(s.Attribution)
	s.sessionStarted = store.Get(StorageKeySessionStarted) != ""

	if scrollDebounce > 0 {
		s.scrollDebounce = NewDebouncer(scrollDebounce)
	}
	return s
}

// Apply dispatches one raw signal to its observer. Unknown or malformed
// signals are dropped; the tracker never raises an error toward the page.
// It reports whether the signal was recognized.
func (s *Session) Apply(ctx context.Context, em *Emitter, store domain.StateStore, sig domain.Signal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()

	switch sig.Type {
	case domain.SignalPageView:
		s.observePageView(ctx, em, store)
	case domain.SignalScroll:
		s.observeScroll(ctx, em, store, sig)
	case domain.SignalClick:
		s.observeClick(ctx, em, store, sig)
	case domain.SignalFieldFocus:
		s.observeFieldFocus(ctx, em, store, sig)
	case domain.SignalFormSubmit:
		s.observeFormSubmit(ctx, em, store, sig)
	case domain.SignalFrameMessage:
		s.observeFrameMessage(ctx, em, store, sig)
	case domain.SignalVisibility:
		s.observeVisibility(ctx, em, store, sig)
	case domain.SignalPointerLeave:
		s.observePointerLeave(ctx, em, store, sig)
	case domain.SignalCustom:
		s.observeCustom(ctx, em, store, sig)
	default:
		s.debugf("dropping unknown signal type", "type", sig.Type)
		return false
	}
	return true
}

// FlushScroll runs any deferred scroll evaluation immediately, against
// the given store. The HTTP handler calls it before writing the response,
// so cookie writes from a debounced emission still reach the browser.
func (s *Session) FlushScroll(ctx context.Context, em *Emitter, store domain.StateStore) {
	if s.scrollDebounce != nil {
		s.scrollDebounce.Stop()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushScrollLocked(ctx, em, store)
}

// Close discards any pending debounced evaluation and releases timers.
// Called when the page session is evicted; deferred scroll work is always
// flushed inside the originating request, so nothing is lost here.
func (s *Session) Close() {
	if s.scrollDebounce != nil {
		s.scrollDebounce.Stop()
	}
}

// emitLocked routes every observer emission through the session-start
// gate: the first event of a browser session is preceded by exactly one
// session_start. Callers hold s.mu.
func (s *Session) emitLocked(ctx context.Context, em *Emitter, store domain.StateStore, name string, data map[string]string) {
	if !s.sessionStarted {
		s.sessionStarted = true
		store.SetSession(StorageKeySessionStarted, "1")
		em.Emit(ctx, s, "session_start", nil)
	}
	em.Emit(ctx, s, name, data)
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(cutoff)
}

func (s *Session) debugf(msg string, args ...any) {
	if s.Config.Debug {
		s.logger.Debug(msg, args...)
	}
}
