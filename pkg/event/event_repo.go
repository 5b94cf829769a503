package event

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrEventNotFound = errors.New("event not found")

type Repository interface {
	Store(ctx context.Context, e Event) (Event, error)
	Update(ctx context.Context, e Event) (Event, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Event, error)
	List(ctx context.Context) ([]Event, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewEventRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Store(ctx context.Context, e Event) (Event, error) {
	query := `INSERT INTO events (channel_id, name, description, begin_date, begin_time, end_date, end_time)
				VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, '')::time, $6, NULLIF($7, '')::time)
				RETURNING id, created_at, modified_at`
	var endDate any
	if !e.EndDate.IsZero() {
		endDate = e.EndDate
	}
	err := r.db.QueryRow(ctx, query,
		e.ChannelId,
		e.Name,
		e.Description,
		e.BeginDate,
		e.BeginTime,
		endDate,
		e.EndTime,
	).Scan(&e.Id, &e.CreatedAt, &e.ModifiedAt)
	if err != nil {
		log.Errorf("failed to store event: %v", err)
		return Event{}, err
	}
	return e, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, e Event) (Event, error) {
	query := `UPDATE events SET name = $2, description = NULLIF($3, ''), begin_date = $4,
				begin_time = NULLIF($5, '')::time, end_date = $6, end_time = NULLIF($7, '')::time,
				modified_at = now()
				WHERE id = $1
				RETURNING created_at, modified_at`
	var endDate any
	if !e.EndDate.IsZero() {
		endDate = e.EndDate
	}
	err := r.db.QueryRow(ctx, query,
		e.Id,
		e.Name,
		e.Description,
		e.BeginDate,
		e.BeginTime,
		endDate,
		e.EndTime,
	).Scan(&e.CreatedAt, &e.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrEventNotFound
	} else if err != nil {
		log.Errorf("failed to update event %d: %v", e.Id, err)
		return Event{}, err
	}
	return e, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		log.Errorf("failed to delete event %d: %v", id, err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id int64) (Event, error) {
	query := `SELECT id, channel_id, name, description, begin_date, begin_time::text, end_date, end_time::text,
				created_at, modified_at
				FROM events WHERE id = $1`
	return r.scanEvent(r.db.QueryRow(ctx, query, id))
}

func (r *RepositoryImpl) List(ctx context.Context) ([]Event, error) {
	query := `SELECT id, channel_id, name, description, begin_date, begin_time::text, end_date, end_time::text,
				created_at, modified_at
				FROM events ORDER BY begin_date, begin_time NULLS FIRST, id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		log.Errorf("failed to list events: %v", err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 16)
	for rows.Next() {
		e, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over events: %v", err)
		return nil, err
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RepositoryImpl) scanEvent(row rowScanner) (Event, error) {
	var e Event
	var description, beginTime, endTime sql.NullString
	var endDate sql.NullTime
	err := row.Scan(&e.Id, &e.ChannelId, &e.Name, &description, &e.BeginDate, &beginTime,
		&endDate, &endTime, &e.CreatedAt, &e.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrEventNotFound
	} else if err != nil {
		log.Errorf("failed to scan event: %v", err)
		return Event{}, err
	}
	e.Description = description.String
	e.BeginTime = beginTime.String
	if endDate.Valid {
		e.EndDate = endDate.Time
	}
	e.EndTime = endTime.String
	return e, nil
}
