package feed

import (
	"fmt"
	"math"
	"time"
)

type ScheduleType string

const (
	ScheduleImmediate       ScheduleType = "immediate"
	ScheduleNever           ScheduleType = "never"
	ScheduleEveryNHours     ScheduleType = "every_n_hours"
	ScheduleDaysAndTimes    ScheduleType = "days_and_times"
)

// DeliverySchedule is a subscription-level policy governing when emitted
// items are considered due. All evaluation is in UTC.
type DeliverySchedule struct {
	Type        ScheduleType   `yaml:"type"`
	EveryNHours int            `yaml:"every_n_hours"`
	Days        []time.Weekday `yaml:"days"`
	Times       []string       `yaml:"times"` // "HH:MM"
}

// DueAt reports whether a delivery governed by the schedule should happen
// now. Unknown schedule types deliver immediately.
func (s DeliverySchedule) DueAt(now time.Time) bool {
	now = now.UTC()

	switch s.Type {
	case ScheduleNever:
		return false
	case ScheduleEveryNHours:
		if s.EveryNHours <= 0 {
			return true
		}
		return now.Hour()%s.EveryNHours == 0
	case ScheduleDaysAndTimes:
		return s.matchesDayAndTime(now)
	}

	return true
}

func (s DeliverySchedule) matchesDayAndTime(now time.Time) bool {
	dayMatches := len(s.Days) == 0
	for _, d := range s.Days {
		if d == now.Weekday() {
			dayMatches = true
			break
		}
	}
	if !dayMatches {
		return false
	}

	// Times are matched against the current 5-minute slot, the same
	// granularity the emission tick runs on.
	slot := fmt.Sprintf("%02d:%02d", now.Hour(), now.Minute()-now.Minute()%5)
	for _, t := range s.Times {
		if t == slot {
			return true
		}
	}
	return false
}

// IntervalSlotMinutes is the tick granularity interval emission rounds to.
const IntervalSlotMinutes = 5

// IntervalDue reports whether an interval subscription fires at the given
// time: minutes since midnight, rounded to the nearest 5, must be a multiple
// of the interval expressed in minutes. Intervals shorter than one minute
// never fire.
func IntervalDue(intervalSeconds int, now time.Time) bool {
	periodMinutes := intervalSeconds / 60
	if periodMinutes <= 0 {
		return false
	}

	now = now.UTC()
	minutesSinceMidnight := float64(now.Hour()*60+now.Minute()) + float64(now.Second())/60
	rounded := int(math.Round(minutesSinceMidnight/IntervalSlotMinutes)) * IntervalSlotMinutes

	return rounded%periodMinutes == 0
}
