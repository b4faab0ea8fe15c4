package domain

// AttributionRecord holds the marketing parameters associated with a
// visitor's current browser session. Once captured from a URL it is
// persisted session-scoped and replaced wholesale on the next non-empty
// observation; individual fields are never merged across page loads.
type AttributionRecord struct {
	UTMSource     string `json:"utm_source"`
	UTMMedium     string `json:"utm_medium"`
	UTMCampaign   string `json:"utm_campaign"`
	UTMTerm       string `json:"utm_term"`
	UTMContent    string `json:"utm_content"`
	UTMCampaignID string `json:"utm_campaign_id"`
	FacebookCLID  string `json:"fbclid"`
	GoogleCLID    string `json:"gclid"`
	MicrosoftCLID string `json:"msclkid"`
	LinkedInCLID  string `json:"li_fat_id"`
}

// IsZero reports whether no attribution parameter has been captured.
func (r AttributionRecord) IsZero() bool {
	return r == AttributionRecord{}
}

// AdPlatformClassification is derived from the click identifiers of an
// AttributionRecord. All fields are empty when no click id is present.
type AdPlatformClassification struct {
	PlatformName string `json:"platform_name"`
	ClickIDType  string `json:"click_id_type"`
	ClickIDValue string `json:"click_id_value"`
}

// PageContext describes the page a signal originated from.
type PageContext struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Referrer string `json:"referrer"`
}

// Event is the canonical envelope appended to the shared data layer.
// Every envelope carries the full attribution record and ad platform
// classification current at emission time, regardless of event type.
type Event struct {
	ID           string                   `json:"event_id"`
	Name         string                   `json:"event"`
	ActivityType string                   `json:"activity_type"`
	TrackingKey  string                   `json:"tracking_key"`
	Env          string                   `json:"env"`
	SDK          string                   `json:"sdk"`
	ClientID     string                   `json:"client_id"`
	URL          string                   `json:"url"`
	Title        string                   `json:"title"`
	Referrer     string                   `json:"referrer"`
	Timestamp    string                   `json:"timestamp"`
	Attribution  AttributionRecord        `json:"attribution"`
	AdPlatform   AdPlatformClassification `json:"ad_platform"`
	Fields       map[string]string        `json:"fields,omitempty"`

	// StreamMessageID is the buffer-assigned id, used for acknowledgement.
	// It is not part of the envelope.
	StreamMessageID string `json:"-"`
}
