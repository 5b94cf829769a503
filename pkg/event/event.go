package event

import "time"

// Event is a member-declared occurrence. Identity is internal; an event has
// no external calendar id until the sync engine first propagates it.
//
// BeginDate/EndDate carry only the date (midnight UTC); BeginTime/EndTime
// are optional wall-clock times in "15:04:05" form, empty for all-day
// events. A zero EndDate means no end was declared.
type Event struct {
	Id          int64
	ChannelId   int64
	Name        string
	Description string
	BeginDate   time.Time
	BeginTime   string
	EndDate     time.Time
	EndTime     string
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// AllDay reports whether the event was declared without a begin time.
func (e Event) AllDay() bool {
	return e.BeginTime == ""
}

// StartAt combines the begin date and optional time into an instant in loc.
func (e Event) StartAt(loc *time.Location) time.Time {
	return combine(e.BeginDate, e.BeginTime, loc)
}

// EndAt returns the declared end instant, falling back to the start when no
// end was declared.
func (e Event) EndAt(loc *time.Location) time.Time {
	if e.EndDate.IsZero() {
		return e.StartAt(loc)
	}
	return combine(e.EndDate, e.EndTime, loc)
}

func combine(date time.Time, clock string, loc *time.Location) time.Time {
	t := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	if clock == "" {
		return t
	}
	parsed, err := time.Parse("15:04:05", clock)
	if err != nil {
		return t
	}
	return t.Add(time.Duration(parsed.Hour())*time.Hour +
		time.Duration(parsed.Minute())*time.Minute +
		time.Duration(parsed.Second())*time.Second)
}
