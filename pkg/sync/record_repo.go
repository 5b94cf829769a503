package sync

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type RecordRepository interface {
	Find(ctx context.Context, userId int64, eventId int64) (*Record, error)
	Insert(ctx context.Context, record Record) error
	Touch(ctx context.Context, userId int64, eventId int64, externalEventId string, syncedAt time.Time) error
	Delete(ctx context.Context, externalEventId string, userId int64) error
	ListForEvent(ctx context.Context, eventId int64) ([]Record, error)
	ListOrphaned(ctx context.Context) ([]Record, error)
}

type RecordRepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRecordRepository(db *pgxpool.Pool) *RecordRepositoryImpl {
	return &RecordRepositoryImpl{db: db}
}

func (r *RecordRepositoryImpl) Find(ctx context.Context, userId int64, eventId int64) (*Record, error) {
	row := r.db.QueryRow(ctx,
		"SELECT external_event_id, user_id, event_id, synced_at FROM event_sync_records WHERE user_id = $1 AND event_id = $2",
		userId, eventId,
	)
	var record Record
	var syncedAt sql.NullTime
	err := row.Scan(&record.ExternalEventId, &record.UserId, &record.EventId, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if syncedAt.Valid {
		record.SyncedAt = syncedAt.Time
	}
	return &record, nil
}

func (r *RecordRepositoryImpl) Insert(ctx context.Context, record Record) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO event_sync_records (external_event_id, user_id, event_id, synced_at) VALUES ($1, $2, $3, $4)",
		record.ExternalEventId, record.UserId, record.EventId, record.SyncedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateRecord
	}
	return err
}

// Touch updates the external id and advances synced_at. The timestamp never
// moves backwards, so a late retry cannot shadow a newer write.
func (r *RecordRepositoryImpl) Touch(ctx context.Context, userId int64, eventId int64, externalEventId string, syncedAt time.Time) error {
	result, err := r.db.Exec(ctx,
		"UPDATE event_sync_records SET external_event_id = $3, synced_at = GREATEST(COALESCE(synced_at, $4), $4) WHERE user_id = $1 AND event_id = $2",
		userId, eventId, externalEventId, syncedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *RecordRepositoryImpl) Delete(ctx context.Context, externalEventId string, userId int64) error {
	result, err := r.db.Exec(ctx,
		"DELETE FROM event_sync_records WHERE external_event_id = $1 AND user_id = $2",
		externalEventId, userId,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *RecordRepositoryImpl) ListForEvent(ctx context.Context, eventId int64) ([]Record, error) {
	rows, err := r.db.Query(ctx,
		"SELECT external_event_id, user_id, event_id, synced_at FROM event_sync_records WHERE event_id = $1",
		eventId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListOrphaned returns records whose event row is gone. These carry a remote
// delete that has not been acknowledged yet.
func (r *RecordRepositoryImpl) ListOrphaned(ctx context.Context) ([]Record, error) {
	rows, err := r.db.Query(ctx,
		"SELECT r.external_event_id, r.user_id, r.event_id, r.synced_at FROM event_sync_records r "+
			"LEFT JOIN events e ON e.id = r.event_id WHERE e.id IS NULL",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

type recordRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows recordRows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var record Record
		var syncedAt sql.NullTime
		if err := rows.Scan(&record.ExternalEventId, &record.UserId, &record.EventId, &syncedAt); err != nil {
			return nil, err
		}
		if syncedAt.Valid {
			record.SyncedAt = syncedAt.Time
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
