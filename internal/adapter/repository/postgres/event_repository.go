package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/lib/pq"

	"github.com/trackbeam/beacon/internal/domain"
)

// EventRepository implements the sink part of domain.EventLog for
// PostgreSQL.
type EventRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEventRepository creates a new PostgreSQL event repository.
func NewEventRepository(db *sql.DB, logger *slog.Logger) *EventRepository {
	return &EventRepository{db: db, logger: logger}
}

// WriteBatch writes a batch of envelopes using the COPY protocol through
// a temp table. The events table is append-only: redelivered envelopes
// hit ON CONFLICT DO NOTHING, so a batch can be safely replayed.
func (r *EventRepository) WriteBatch(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	tempTableName := "events_temp_import"
	_, err = txn.ExecContext(ctx, `CREATE TEMP TABLE `+tempTableName+` (LIKE events INCLUDING DEFAULTS) ON COMMIT DROP;`)
	if err != nil {
		return err
	}

	columns := []string{
		"event_id", "event", "activity_type", "tracking_key", "env", "sdk",
		"client_id", "url", "title", "referrer", "event_time",
		"attribution", "ad_platform", "fields",
	}

	stmt, err := txn.Prepare(pq.CopyIn(tempTableName, columns...))
	if err != nil {
		return err
	}

	for _, event := range events {
		attribution, err := json.Marshal(event.Attribution)
		if err != nil {
			_ = stmt.Close()
			return err
		}
		adPlatform, err := json.Marshal(event.AdPlatform)
		if err != nil {
			_ = stmt.Close()
			return err
		}
		var fields []byte
		if event.Fields != nil {
			if fields, err = json.Marshal(event.Fields); err != nil {
				_ = stmt.Close()
				return err
			}
		}

		_, err = stmt.ExecContext(ctx,
			event.ID, event.Name, event.ActivityType, event.TrackingKey, event.Env, event.SDK,
			event.ClientID, event.URL, event.Title, event.Referrer, event.Timestamp,
			attribution, adPlatform, nullableJSON(fields),
		)
		if err != nil {
			_ = stmt.Close()
			return err
		}
	}

	if err := stmt.Close(); err != nil {
		return err
	}

	upsertQuery := `
		INSERT INTO events (event_id, event, activity_type, tracking_key, env, sdk,
			client_id, url, title, referrer, event_time, attribution, ad_platform, fields)
		SELECT event_id, event, activity_type, tracking_key, env, sdk,
			client_id, url, title, referrer, event_time, attribution, ad_platform, fields
		FROM ` + tempTableName + `
		ON CONFLICT (event_id) DO NOTHING;
	`
	_, err = txn.ExecContext(ctx, upsertQuery)
	if err != nil {
		return err
	}

	return txn.Commit()
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}

// The following methods are not implemented for the PostgreSQL sink.
var errNotImplemented = errors.New("method not implemented for this repository type")

func (r *EventRepository) Append(ctx context.Context, event domain.Event) error {
	return errNotImplemented
}

func (r *EventRepository) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.Event, error) {
	return nil, errNotImplemented
}

func (r *EventRepository) Acknowledge(ctx context.Context, group string, messageIDs ...string) error {
	return errNotImplemented
}
