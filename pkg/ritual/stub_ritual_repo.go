package ritual

import (
	"context"
	"sort"

	"github.com/guildbot/guildbot/pkg/user"
)

type StubRitualRepo struct {
	Marks        map[int64]Mark    // message id -> mark
	UserCounters map[int64]Counters
	Names        map[int64]string
}

func NewStubRitualRepo() *StubRitualRepo {
	return &StubRitualRepo{
		Marks:        map[int64]Mark{},
		UserCounters: map[int64]Counters{},
		Names:        map[int64]string{},
	}
}

func (s *StubRitualRepo) InsertMark(ctx context.Context, mark Mark) error {
	if _, ok := s.Marks[mark.MessageId]; ok {
		return ErrAlreadyMarked
	}
	for _, existing := range s.Marks {
		if existing.UserId == mark.UserId && existing.RitualDate.Equal(mark.RitualDate) {
			return ErrAlreadyMarked
		}
	}
	s.Marks[mark.MessageId] = mark
	return nil
}

func (s *StubRitualRepo) Counters(ctx context.Context, userId int64) (Counters, error) {
	c, ok := s.UserCounters[userId]
	if !ok {
		return Counters{}, user.ErrUserNotFound
	}
	return c, nil
}

func (s *StubRitualRepo) UpdateCounters(ctx context.Context, userId int64, c Counters) error {
	s.UserCounters[userId] = c
	return nil
}

func (s *StubRitualRepo) Leaderboard(ctx context.Context, limit int) ([]Stats, error) {
	var entries []Stats
	for userId, c := range s.UserCounters {
		if c.Count == 0 {
			continue
		}
		entries = append(entries, Stats{
			UserId:        userId,
			DisplayName:   s.Names[userId],
			Count:         c.Count,
			CurrentStreak: c.CurrentStreak,
			LongestStreak: c.LongestStreak,
			LastDate:      c.LastDate,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		if entries[i].LongestStreak != entries[j].LongestStreak {
			return entries[i].LongestStreak > entries[j].LongestStreak
		}
		return entries[i].UserId < entries[j].UserId
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *StubRitualRepo) YearlyCounts(ctx context.Context, userId int64) ([]YearCount, error) {
	byYear := map[int]int64{}
	for _, mark := range s.Marks {
		if mark.UserId == userId {
			byYear[mark.RitualDate.Year()]++
		}
	}
	var counts []YearCount
	for year, count := range byYear {
		counts = append(counts, YearCount{Year: year, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Year < counts[j].Year })
	return counts, nil
}
