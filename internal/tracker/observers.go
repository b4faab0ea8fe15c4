package tracker

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/trackbeam/beacon/internal/domain"
)

// scrollThresholds are the depth milestones reported per page load, each
// at most once, in ascending first-crossing order.
var scrollThresholds = [...]int{25, 50, 75, 90}

const maxClickTextLen = 100

func (s *Session) observePageView(ctx context.Context, em *Emitter, store domain.StateStore) {
	s.emitLocked(ctx, em, store, "page_view", nil)
}

// observeScroll records the deepest position seen and defers threshold
// evaluation behind the debouncer; a new scroll signal restarts the quiet
// period. With debouncing disabled the evaluation runs inline.
func (s *Session) observeScroll(ctx context.Context, em *Emitter, store domain.StateStore, sig domain.Signal) {
	if sig.Percent > s.maxScroll {
		s.maxScroll = sig.Percent
	}
	if s.scrollDebounce == nil {
		s.flushScrollLocked(ctx, em, store)
		return
	}
	s.scrollDebounce.Trigger(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Only reached when the quiet period elapses while the originating
		// request is still in flight; FlushScroll consumes the pending
		// evaluation before the response is written.
		s.flushScrollLocked(context.Background(), em, store)
	})
}

func (s *Session) flushScrollLocked(ctx context.Context, em *Emitter, store domain.StateStore) {
	for _, threshold := range scrollThresholds {
		if s.maxScroll < float64(threshold) || s.scrollSeen[threshold] {
			continue
		}
		s.scrollSeen[threshold] = true
		s.emitLocked(ctx, em, store, "scroll_depth", map[string]string{
			"percent_scrolled": strconv.Itoa(threshold),
		})
	}
}

func (s *Session) observeClick(ctx context.Context, em *Emitter, store domain.StateStore, sig domain.Signal) {
	if sig.Element == nil {
		s.debugf("click signal without element, skipping")
		return
	}
	name, ok := classifyClick(*sig.Element)
	if !ok {
		s.debugf("click target is not interactive, skipping", "tag", sig.Element.Tag)
		return
	}

	el := *sig.Element
	data := map[string]string{
		"element_type": el.Tag,
		"text":         truncate(strings.TrimSpace(el.Text), maxClickTextLen),
	}
	if el.Href != "" {
		data["href"] = el.Href
	}
	if el.ID != "" {
		data["element_id"] = el.ID
	}
	if el.Classes != "" {
		data["element_class"] = el.Classes
	}
	switch name {
	case "nav_click":
		data["nav_item"] = data["text"]
	case "cta_click":
		data["cta_name"] = data["text"]
	case "footer_click":
		data["footer_link"] = firstNonEmpty(el.Href, data["text"])
	case "tab_click":
		data["tab_name"] = data["text"]
	}

	s.emitLocked(ctx, em, store, name, data)
}

// classifyClick maps a click target onto an event name. The first matching
// specific category wins; plain links and buttons fall back to the generic
// click event; anything else produces no event.
func classifyClick(el domain.ElementInfo) (string, bool) {
	switch {
	case hasClass(el.Classes, "nav-item"):
		return "nav_click", true
	case hasClass(el.Classes, "cta"):
		return "cta_click", true
	case hasClass(el.Classes, "footer-link"):
		return "footer_click", true
	case hasClass(el.Classes, "tab") || el.Role == "tab":
		return "tab_click", true
	}

	tag := strings.ToLower(el.Tag)
	if tag == "a" || tag == "button" || el.Role == "button" || el.Role == "link" {
		return "click", true
	}
	return "", false
}

func (s *Session) observeFieldFocus(ctx context.Context, em *Emitter, store domain.StateStore, sig domain.Signal) {
	// One form_start per page load, across all forms: the first form the
	// visitor touches wins.
	if s.formStarted {
		return
	}
	s.formStarted = true
	s.emitLocked(ctx, em, store, "form_start", formData(sig.Form))
}

func (s *Session) observeFormSubmit(ctx context.Context, em *Emitter, store domain.StateStore, sig domain.Signal) {
	if dropped := countSensitiveFields(sig.FormFields); dropped > 0 {
		em.noteSensitiveDropped(dropped)
	}

	data := NormalizeFields(sig.FormFields)
	for key, value := range formData(sig.Form) {
		if value != "" {
			data[key] = value
		}
	}
	s.emitLocked(ctx, em, store, "form_submit", data)
}

// observeFrameMessage handles cross-frame messages from embedded forms.
// Messages without an event field are ignored; only form_submit messages
// produce an event.
func (s *Session) observeFrameMessage(ctx context.Context, em *Emitter, store domain.StateStore, sig domain.Signal) {
	if len(sig.Message) == 0 {
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(sig.Message, &payload); err != nil {
		s.debugf("malformed frame message, skipping", "error", err)
		return
	}
	eventName, ok := payload["event"].(string)
	if !ok {
		s.debugf("frame message without event field, skipping")
		return
	}
	if eventName != "form_submit" {
		s.debugf("ignoring frame message", "event", eventName)
		return
	}

	raw := make(map[string]string, len(payload))
	for key, value := range payload {
		if key == "event" {
			continue
		}
		switch v := value.(type) {
		case string:
			raw[key] = v
		case float64:
			raw[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			raw[key] = strconv.FormatBool(v)
		}
	}
	if dropped := countSensitiveFields(raw); dropped > 0 {
		em.noteSensitiveDropped(dropped)
	}

	data := NormalizeFields(raw)
	data["form_type"] = "iframe"
	s.emitLocked(ctx, em, store, "form_submit", data)
}

func (s *Session) observeVisibility(ctx context.Context, em *Emitter, store domain.StateStore, sig domain.Signal) {
	name := "page_show"
	if sig.Hidden {
		name = "page_hide"
	}
	s.emitLocked(ctx, em, store, name, nil)
}

// observePointerLeave fires exit_intent at most once per page load, when
// the pointer leaves the viewport at the top edge.
func (s *Session) observePointerLeave(ctx context.Context, em *Emitter, store domain.StateStore, sig domain.Signal) {
	if sig.ClientY > 0 || s.exitIntentFired {
		return
	}
	s.exitIntentFired = true
	seconds := int(s.now().Sub(s.StartedAt).Seconds())
	s.emitLocked(ctx, em, store, "exit_intent", map[string]string{
		"time_on_page": strconv.Itoa(seconds),
	})
}

func (s *Session) observeCustom(ctx context.Context, em *Emitter, store domain.StateStore, sig domain.Signal) {
	if sig.EventName == "" {
		s.debugf("custom signal without event name, skipping")
		return
	}
	s.emitLocked(ctx, em, store, sig.EventName, sig.Data)
}

func formData(form *domain.FormInfo) map[string]string {
	if form == nil {
		return map[string]string{}
	}
	data := map[string]string{}
	if form.Name != "" {
		data["form_name"] = form.Name
	}
	if form.ID != "" {
		data["form_id"] = form.ID
	}
	if form.Action != "" {
		data["form_action"] = form.Action
	}
	return data
}

func hasClass(classes, want string) bool {
	for _, c := range strings.Fields(strings.ToLower(classes)) {
		if c == want {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
