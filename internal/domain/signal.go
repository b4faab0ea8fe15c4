package domain

import "encoding/json"

// Signal types forwarded by the page snippet. The snippet is deliberately
// dumb: it reports raw interactions and the collector decides which events
// they produce.
const (
	SignalPageView     = "page_view"
	SignalScroll       = "scroll"
	SignalClick        = "click"
	SignalFieldFocus   = "field_focus"
	SignalFormSubmit   = "form_submit"
	SignalFrameMessage = "frame_message"
	SignalVisibility   = "visibility"
	SignalPointerLeave = "pointer_leave"
	SignalCustom       = "custom"
)

// Signal is one raw interaction observed on a page. Fields beyond Type and
// PageLoadID are populated per signal type; absent fields degrade to empty
// values rather than errors.
type Signal struct {
	PageLoadID  string      `json:"page_load_id"`
	Type        string      `json:"type"`
	TrackingKey string      `json:"tracking_key,omitempty"`
	Org         string      `json:"org,omitempty"` // deprecated alias of tracking_key
	Env         string      `json:"env,omitempty"`
	Debug       bool        `json:"debug,omitempty"`
	Page        PageContext `json:"page"`

	// scroll
	Percent float64 `json:"percent,omitempty"`

	// click
	Element *ElementInfo `json:"element,omitempty"`

	// field_focus, form_submit
	Form       *FormInfo         `json:"form,omitempty"`
	FormFields map[string]string `json:"form_fields,omitempty"`

	// frame_message: raw cross-frame message payload
	Message json.RawMessage `json:"message,omitempty"`

	// visibility
	Hidden bool `json:"hidden,omitempty"`

	// pointer_leave
	ClientY float64 `json:"client_y"`

	// custom
	EventName string            `json:"event_name,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// ElementInfo describes the target of a click signal.
type ElementInfo struct {
	Tag     string `json:"tag"`
	ID      string `json:"id,omitempty"`
	Classes string `json:"classes,omitempty"`
	Role    string `json:"role,omitempty"`
	Text    string `json:"text,omitempty"`
	Href    string `json:"href,omitempty"`
}

// FormInfo identifies the form a focus or submit signal belongs to.
type FormInfo struct {
	Name   string `json:"name,omitempty"`
	ID     string `json:"id,omitempty"`
	Action string `json:"action,omitempty"`
}
