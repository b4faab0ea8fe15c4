// Package tracker implements the event-tracking core: attribution
// resolution, client identity, form-field normalization, the event emitter
// and the per-page-load interaction observers. The package has no HTTP or
// storage dependencies beyond the domain interfaces, so every guard and
// merge rule is unit-testable without browser or network state.
package tracker

// Storage keys the tracker reads and writes through domain.StateStore.
// Session-scoped entries clear when the browser session ends; the client
// id entry persists indefinitely.
const (
	StorageKeyClientID       = "ga_client_id"
	StorageKeyTrackingParams = "tracking_params"
	StorageKeySessionStarted = "session_started"
)

// Config is the snippet-level configuration resolved once per page load.
type Config struct {
	TrackingKey string
	Env         string
	Debug       bool
}

// ResolveConfig applies the configuration defaults. tracking_key is the
// canonical tenant key; org is accepted as a deprecated alias for snippets
// deployed before the rename.
func ResolveConfig(trackingKey, org, env string, debug bool) Config {
	key := trackingKey
	if key == "" {
		key = org
	}
	if key == "" {
		key = "unknown"
	}
	if env == "" {
		env = "prod"
	}
	return Config{TrackingKey: key, Env: env, Debug: debug}
}
