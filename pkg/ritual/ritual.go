package ritual

import "time"

// Mark is one counted ritual message. MessageId is the chat message that
// carried the ritual greeting; at most one mark per user per day counts.
type Mark struct {
	MessageId  int64
	UserId     int64
	RitualDate time.Time
}

// Counters is a user's running ritual tally. LastDate is the most recent
// counted day and drives streak continuation.
type Counters struct {
	Count         int64
	CurrentStreak int64
	LongestStreak int64
	LastDate      time.Time
}

// YearCount is the number of counted ritual days in one calendar year.
type YearCount struct {
	Year  int
	Count int64
}

// Stats is the reporting view of one user's ritual standing.
type Stats struct {
	UserId        int64
	DisplayName   string
	Count         int64
	CurrentStreak int64
	LongestStreak int64
	LastDate      time.Time
}
