package tracker

import (
	"encoding/json"
	"net/url"

	"github.com/trackbeam/beacon/internal/domain"
)

// ResolveAttribution returns the attribution record for the current page
// load. If the URL carries at least one recognized parameter the freshly
// observed set replaces the persisted one atomically; otherwise the
// session-scoped snapshot from an earlier page of the session is reused.
// Pure function of URL plus storage snapshot; no network calls.
func ResolveAttribution(pageURL string, store domain.StateStore) domain.AttributionRecord {
	if fresh, ok := attributionFromURL(pageURL); ok {
		if raw, err := json.Marshal(fresh); err == nil {
			store.SetSession(StorageKeyTrackingParams, string(raw))
		}
		return fresh
	}

	if raw := store.Get(StorageKeyTrackingParams); raw != "" {
		var persisted domain.AttributionRecord
		if err := json.Unmarshal([]byte(raw), &persisted); err == nil {
			return persisted
		}
	}

	return domain.AttributionRecord{}
}

func attributionFromURL(pageURL string) (domain.AttributionRecord, bool) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return domain.AttributionRecord{}, false
	}
	query := parsed.Query()

	record := domain.AttributionRecord{
		UTMSource:     query.Get("utm_source"),
		UTMMedium:     query.Get("utm_medium"),
		UTMCampaign:   query.Get("utm_campaign"),
		UTMTerm:       query.Get("utm_term"),
		UTMContent:    query.Get("utm_content"),
		UTMCampaignID: query.Get("utm_campaign_id"),
		FacebookCLID:  query.Get("fbclid"),
		GoogleCLID:    query.Get("gclid"),
		MicrosoftCLID: query.Get("msclkid"),
		LinkedInCLID:  query.Get("li_fat_id"),
	}

	// utm_id is the common shorthand for the campaign id.
	if record.UTMCampaignID == "" {
		record.UTMCampaignID = query.Get("utm_id")
	}

	return record, !record.IsZero()
}

// ClassifyAdPlatform maps the record's click identifiers onto the ad
// platform taxonomy. Priority order is fixed; the first non-empty click id
// wins. Absence of any click id yields the empty classification, not an
// error.
func ClassifyAdPlatform(record domain.AttributionRecord) domain.AdPlatformClassification {
	rules := []struct {
		platform string
		idType   string
		value    string
	}{
		{"Facebook/Instagram", "fbclid", record.FacebookCLID},
		{"Google Ads", "gclid", record.GoogleCLID},
		{"Microsoft Ads", "msclkid", record.MicrosoftCLID},
		{"LinkedIn Ads", "li_fat_id", record.LinkedInCLID},
	}
	for _, rule := range rules {
		if rule.value != "" {
			return domain.AdPlatformClassification{
				PlatformName: rule.platform,
				ClickIDType:  rule.idType,
				ClickIDValue: rule.value,
			}
		}
	}
	return domain.AdPlatformClassification{}
}
