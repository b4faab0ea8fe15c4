package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trackbeam/beacon/internal/domain"
	"github.com/trackbeam/beacon/internal/domain/mocks"
)

func newEmitterSession(t *testing.T) (*Session, *mocks.MemoryStateStore) {
	t.Helper()
	store := mocks.NewMemoryStateStore()
	cfg := ResolveConfig("key_test", "", "staging", false)
	page := domain.PageContext{URL: "https://example.com/?utm_source=x", Title: "Home", Referrer: "https://ref.example"}
	return NewSession("pl_em", cfg, page, "", store, 0, discardLogger()), store
}

func TestEmitBuildsCompleteEnvelope(t *testing.T) {
	log := &mocks.MockEventLog{}
	em := NewEmitter(log, discardLogger(), nil)
	s, _ := newEmitterSession(t)

	em.Emit(context.Background(), s, "page_view", nil)

	events := log.Events()
	require.Len(t, events, 1)
	e := events[0]
	require.NotEmpty(t, e.ID)
	require.Equal(t, "page_view", e.Name)
	require.Equal(t, "page_view", e.ActivityType)
	require.Equal(t, "key_test", e.TrackingKey)
	require.Equal(t, "staging", e.Env)
	require.Equal(t, sdkTag, e.SDK)
	require.Equal(t, s.ClientID, e.ClientID)
	require.Equal(t, "https://example.com/?utm_source=x", e.URL)
	require.Equal(t, "Home", e.Title)
	require.Equal(t, "https://ref.example", e.Referrer)
	require.NotEmpty(t, e.Timestamp)
	require.Equal(t, "x", e.Attribution.UTMSource)
}

func TestEmitEventDataWinsOnCanonicalKeys(t *testing.T) {
	log := &mocks.MockEventLog{}
	em := NewEmitter(log, discardLogger(), nil)
	s, _ := newEmitterSession(t)

	em.Emit(context.Background(), s, "custom", map[string]string{
		"url":       "https://override.example/",
		"client_id": "cid_override",
		"custom_k":  "v",
	})

	e := log.Events()[0]
	require.Equal(t, "https://override.example/", e.URL)
	require.Equal(t, "cid_override", e.ClientID)
	// Overriding keys are consumed, not duplicated into fields.
	_, inFields := e.Fields["url"]
	require.False(t, inFields)
	require.Equal(t, "v", e.Fields["custom_k"])
}

func TestEmitAppendFailureIsSwallowed(t *testing.T) {
	log := &mocks.MockEventLog{AppendErr: errors.New("stream down")}
	em := NewEmitter(log, discardLogger(), nil)
	s, _ := newEmitterSession(t)

	var observed int
	em.AddObserver(func(domain.Event) { observed++ })

	em.Emit(context.Background(), s, "page_view", nil)

	require.Empty(t, log.Events())
	require.Zero(t, observed, "observers must not see failed appends")
}

func TestEmitNotifiesObservers(t *testing.T) {
	log := &mocks.MockEventLog{}
	em := NewEmitter(log, discardLogger(), nil)
	s, _ := newEmitterSession(t)

	var seen []string
	em.AddObserver(func(e domain.Event) { seen = append(seen, e.Name) })
	em.AddObserver(func(e domain.Event) { seen = append(seen, e.Name+"_2") })

	em.Emit(context.Background(), s, "page_view", nil)

	require.Equal(t, []string{"page_view", "page_view_2"}, seen)
}
