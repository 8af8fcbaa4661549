package entity

import (
	"fmt"
	"sort"
	"time"
)

// QueueSlot is one recurring weekly publishing opportunity in the profile's zone
type QueueSlot struct {
	Weekday time.Weekday `json:"weekday"` // 0 = Sunday
	Hour    int          `json:"hour"`
	Minute  int          `json:"minute"`
}

// Validate validates slot ranges
func (s QueueSlot) Validate() error {
	if s.Weekday < time.Sunday || s.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d", ErrInvalidQueueTemplate, s.Weekday)
	}
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("%w: hour %d", ErrInvalidQueueTemplate, s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("%w: minute %d", ErrInvalidQueueTemplate, s.Minute)
	}
	return nil
}

// Time returns the slot's time of day
func (s QueueSlot) Time() LocalTime {
	return LocalTime{Hour: s.Hour, Minute: s.Minute}
}

func (s QueueSlot) less(o QueueSlot) bool {
	if s.Weekday != o.Weekday {
		return s.Weekday < o.Weekday
	}
	if s.Hour != o.Hour {
		return s.Hour < o.Hour
	}
	return s.Minute < o.Minute
}

// QueueTemplate is a profile's recurring weekly schedule
type QueueTemplate struct {
	ProfileID string      `json:"profile_id"`
	Timezone  string      `json:"timezone"`
	Slots     []QueueSlot `json:"slots"`
}

// Validate checks slot ranges and that no two slots share (weekday, hour, minute).
// An empty slot list is valid here; planning reports it as ErrEmptyQueueTemplate.
func (q *QueueTemplate) Validate() error {
	seen := make(map[QueueSlot]struct{}, len(q.Slots))
	for _, s := range q.Slots {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, ok := seen[s]; ok {
			return fmt.Errorf("%w: duplicate slot %s %02d:%02d", ErrInvalidQueueTemplate, s.Weekday, s.Hour, s.Minute)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// SortedSlots returns a copy of the slots in weekly order
func (q *QueueTemplate) SortedSlots() []QueueSlot {
	out := make([]QueueSlot, len(q.Slots))
	copy(out, q.Slots)
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}
