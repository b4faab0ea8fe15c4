package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trackbeam/beacon/internal/domain"
	"github.com/trackbeam/beacon/internal/domain/mocks"
)

func newRegistrySession(id string) *Session {
	store := mocks.NewMemoryStateStore()
	return NewSession(id, ResolveConfig("", "", "", false), domain.PageContext{URL: "https://example.com/"}, "", store, 0, discardLogger())
}

func TestRegistryGetOrCreateBuildsOnce(t *testing.T) {
	r := NewSessionRegistry(discardLogger())

	builds := 0
	build := func() *Session {
		builds++
		return newRegistrySession("pl_1")
	}

	first := r.GetOrCreate("pl_1", build)
	second := r.GetOrCreate("pl_1", build)

	require.Same(t, first, second)
	require.Equal(t, 1, builds)
	require.Equal(t, 1, r.Len())
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	r := NewSessionRegistry(discardLogger())

	idle := r.GetOrCreate("pl_idle", func() *Session { return newRegistrySession("pl_idle") })
	idle.mu.Lock()
	idle.lastSeen = time.Now().Add(-time.Hour)
	idle.mu.Unlock()

	r.GetOrCreate("pl_live", func() *Session { return newRegistrySession("pl_live") })

	r.evictIdle(30 * time.Minute)

	require.Equal(t, 1, r.Len())
	fresh := r.GetOrCreate("pl_live", func() *Session {
		t.Fatal("live session should not be rebuilt")
		return nil
	})
	require.NotNil(t, fresh)
}
