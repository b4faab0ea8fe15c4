package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trackbeam/beacon/internal/domain"
	"github.com/trackbeam/beacon/internal/domain/mocks"
)

func TestResolveAttributionCapturesAndPersists(t *testing.T) {
	store := mocks.NewMemoryStateStore()

	record := ResolveAttribution("https://example.com/?utm_source=x&gclid=y", store)

	require.Equal(t, "x", record.UTMSource)
	require.Equal(t, "y", record.GoogleCLID)
	require.NotEmpty(t, store.Session[StorageKeyTrackingParams])
}

func TestResolveAttributionReusesPersistedRecord(t *testing.T) {
	store := mocks.NewMemoryStateStore()

	first := ResolveAttribution("https://example.com/landing?utm_source=x&gclid=y", store)
	require.Equal(t, "x", first.UTMSource)

	// Second page of the session carries no query parameters.
	second := ResolveAttribution("https://example.com/pricing", store)
	require.Equal(t, "x", second.UTMSource)
	require.Equal(t, "y", second.GoogleCLID)
}

func TestResolveAttributionReplacesRecordAtomically(t *testing.T) {
	store := mocks.NewMemoryStateStore()

	ResolveAttribution("https://example.com/?utm_source=x&gclid=y&utm_medium=cpc", store)
	third := ResolveAttribution("https://example.com/?utm_source=z", store)

	require.Equal(t, "z", third.UTMSource)
	// Fields absent from the new query are not retained from the old record.
	require.Empty(t, third.GoogleCLID)
	require.Empty(t, third.UTMMedium)

	// And the persisted snapshot was replaced, not merged.
	reread := ResolveAttribution("https://example.com/other", store)
	require.Equal(t, "z", reread.UTMSource)
	require.Empty(t, reread.GoogleCLID)
}

func TestResolveAttributionClearsAfterSessionEnd(t *testing.T) {
	store := mocks.NewMemoryStateStore()

	ResolveAttribution("https://example.com/?utm_campaign=spring", store)
	store.EndSession()

	record := ResolveAttribution("https://example.com/", store)
	require.True(t, record.IsZero())
}

func TestResolveAttributionUTMIDAlias(t *testing.T) {
	store := mocks.NewMemoryStateStore()

	record := ResolveAttribution("https://example.com/?utm_id=c42", store)
	require.Equal(t, "c42", record.UTMCampaignID)
}

func TestResolveAttributionMalformedURL(t *testing.T) {
	store := mocks.NewMemoryStateStore()

	record := ResolveAttribution("://not a url", store)
	require.True(t, record.IsZero())
}

func TestClassifyAdPlatformPriority(t *testing.T) {
	tests := []struct {
		name   string
		record domain.AttributionRecord
		want   domain.AdPlatformClassification
	}{
		{
			name:   "facebook wins over google",
			record: domain.AttributionRecord{FacebookCLID: "1", GoogleCLID: "2"},
			want:   domain.AdPlatformClassification{PlatformName: "Facebook/Instagram", ClickIDType: "fbclid", ClickIDValue: "1"},
		},
		{
			name:   "google wins over microsoft",
			record: domain.AttributionRecord{GoogleCLID: "2", MicrosoftCLID: "3"},
			want:   domain.AdPlatformClassification{PlatformName: "Google Ads", ClickIDType: "gclid", ClickIDValue: "2"},
		},
		{
			name:   "microsoft wins over linkedin",
			record: domain.AttributionRecord{MicrosoftCLID: "3", LinkedInCLID: "4"},
			want:   domain.AdPlatformClassification{PlatformName: "Microsoft Ads", ClickIDType: "msclkid", ClickIDValue: "3"},
		},
		{
			name:   "linkedin alone",
			record: domain.AttributionRecord{LinkedInCLID: "4"},
			want:   domain.AdPlatformClassification{PlatformName: "LinkedIn Ads", ClickIDType: "li_fat_id", ClickIDValue: "4"},
		},
		{
			name:   "no click id yields empty classification",
			record: domain.AttributionRecord{UTMSource: "newsletter"},
			want:   domain.AdPlatformClassification{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyAdPlatform(tc.record))
		})
	}
}
