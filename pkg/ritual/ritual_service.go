package ritual

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/guildbot/guildbot/internal/utils"
	"github.com/guildbot/guildbot/pkg/user"
)

type Service interface {
	// Record counts a ritual message for the user. A message or day that was
	// already counted is a benign no-op; recorded reports whether this call
	// advanced the tally.
	Record(ctx context.Context, userId int64, messageId int64) (recorded bool, err error)
	Stats(ctx context.Context, userId int64) (Stats, error)
	Yearly(ctx context.Context, userId int64) ([]YearCount, error)
	Leaderboard(ctx context.Context) ([]Stats, error)
}

const leaderboardSize = 20

type ServiceImpl struct {
	repo  Repo
	users user.Provider
	clock utils.Clock
}

func NewService(repo Repo, users user.Provider, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, users: users, clock: clock}
}

func (s *ServiceImpl) Record(ctx context.Context, userId int64, messageId int64) (bool, error) {
	today := dateOf(s.clock.Now())

	err := s.repo.InsertMark(ctx, Mark{MessageId: messageId, UserId: userId, RitualDate: today})
	if errors.Is(err, ErrAlreadyMarked) {
		log.WithFields(log.Fields{"userId": userId, "messageId": messageId}).
			Debug("Ritual already counted for today")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	c, err := s.repo.Counters(ctx, userId)
	if err != nil {
		return false, err
	}
	if sameDay(c.LastDate, today.AddDate(0, 0, -1)) {
		c.CurrentStreak++
	} else {
		c.CurrentStreak = 1
	}
	if c.CurrentStreak > c.LongestStreak {
		c.LongestStreak = c.CurrentStreak
	}
	c.Count++
	c.LastDate = today

	if err := s.repo.UpdateCounters(ctx, userId, c); err != nil {
		return false, err
	}
	log.WithFields(log.Fields{"userId": userId, "count": c.Count, "streak": c.CurrentStreak}).
		Debug("Ritual counted")
	return true, nil
}

func (s *ServiceImpl) Stats(ctx context.Context, userId int64) (Stats, error) {
	u, err := s.users.GetUser(ctx, userId)
	if err != nil {
		return Stats{}, err
	}
	c, err := s.repo.Counters(ctx, userId)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		UserId:        u.Id,
		DisplayName:   u.DisplayName,
		Count:         c.Count,
		CurrentStreak: currentStreakAsOf(c, s.clock.Now()),
		LongestStreak: c.LongestStreak,
		LastDate:      c.LastDate,
	}, nil
}

func (s *ServiceImpl) Yearly(ctx context.Context, userId int64) ([]YearCount, error) {
	if _, err := s.users.GetUser(ctx, userId); err != nil {
		return nil, err
	}
	return s.repo.YearlyCounts(ctx, userId)
}

func (s *ServiceImpl) Leaderboard(ctx context.Context) ([]Stats, error) {
	entries, err := s.repo.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for i := range entries {
		entries[i].CurrentStreak = currentStreakAsOf(Counters{
			CurrentStreak: entries[i].CurrentStreak,
			LastDate:      entries[i].LastDate,
		}, now)
	}
	return entries, nil
}

// currentStreakAsOf reports the streak as seen at the given instant: a streak
// whose last counted day is before yesterday is already broken even though no
// message arrived to reset it.
func currentStreakAsOf(c Counters, now time.Time) int64 {
	today := dateOf(now)
	if sameDay(c.LastDate, today) || sameDay(c.LastDate, today.AddDate(0, 0, -1)) {
		return c.CurrentStreak
	}
	return 0
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
