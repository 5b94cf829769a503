package ritual

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildbot/guildbot/pkg/user"
)

var ErrAlreadyMarked = errors.New("ritual already counted")

const pgUniqueViolation = "23505"

type Repo interface {
	InsertMark(ctx context.Context, mark Mark) error
	Counters(ctx context.Context, userId int64) (Counters, error)
	UpdateCounters(ctx context.Context, userId int64, c Counters) error
	Leaderboard(ctx context.Context, limit int) ([]Stats, error)
	YearlyCounts(ctx context.Context, userId int64) ([]YearCount, error)
}

type RepoImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *RepoImpl {
	return &RepoImpl{db: db}
}

func (r *RepoImpl) InsertMark(ctx context.Context, mark Mark) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO ritual_history (message_id, user_id, ritual_date) VALUES ($1, $2, $3)",
		mark.MessageId, mark.UserId, mark.RitualDate,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrAlreadyMarked
	}
	return err
}

func (r *RepoImpl) Counters(ctx context.Context, userId int64) (Counters, error) {
	row := r.db.QueryRow(ctx,
		"SELECT ritual_count, current_streak, longest_streak, last_ritual_date FROM users WHERE user_id = $1",
		userId,
	)
	var c Counters
	var lastDate sql.NullTime
	err := row.Scan(&c.Count, &c.CurrentStreak, &c.LongestStreak, &lastDate)
	if errors.Is(err, sql.ErrNoRows) {
		return Counters{}, user.ErrUserNotFound
	}
	if err != nil {
		return Counters{}, err
	}
	if lastDate.Valid {
		c.LastDate = lastDate.Time
	}
	return c, nil
}

func (r *RepoImpl) UpdateCounters(ctx context.Context, userId int64, c Counters) error {
	_, err := r.db.Exec(ctx,
		"UPDATE users SET ritual_count = $2, current_streak = $3, longest_streak = $4, last_ritual_date = $5 WHERE user_id = $1",
		userId, c.Count, c.CurrentStreak, c.LongestStreak, c.LastDate,
	)
	return err
}

func (r *RepoImpl) Leaderboard(ctx context.Context, limit int) ([]Stats, error) {
	rows, err := r.db.Query(ctx,
		"SELECT user_id, display_name, ritual_count, current_streak, longest_streak, last_ritual_date FROM users "+
			"WHERE ritual_count > 0 ORDER BY ritual_count DESC, longest_streak DESC, user_id LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Stats
	for rows.Next() {
		var s Stats
		var lastDate sql.NullTime
		if err := rows.Scan(&s.UserId, &s.DisplayName, &s.Count, &s.CurrentStreak, &s.LongestStreak, &lastDate); err != nil {
			return nil, err
		}
		if lastDate.Valid {
			s.LastDate = lastDate.Time
		}
		entries = append(entries, s)
	}
	return entries, rows.Err()
}

func (r *RepoImpl) YearlyCounts(ctx context.Context, userId int64) ([]YearCount, error) {
	rows, err := r.db.Query(ctx,
		"SELECT date_part('year', ritual_date)::int AS year, count(*) FROM ritual_history "+
			"WHERE user_id = $1 GROUP BY year ORDER BY year",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []YearCount
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, yc)
	}
	return counts, rows.Err()
}
