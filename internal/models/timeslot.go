package models

import (
	"errors"
	"sort"
	"time"
)

// TimeSlot is the half-open interval [Start, End).
type TimeSlot struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

func (s TimeSlot) Validate() error {
	if s.Start.IsZero() || s.End.IsZero() {
		return errors.New("slot start and end are required")
	}
	if !s.End.After(s.Start) {
		return errors.New("slot end must be after start")
	}
	return nil
}

func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// Within reports whether s lies entirely inside o.
func (s TimeSlot) Within(o TimeSlot) bool {
	return !s.Start.Before(o.Start) && !s.End.After(o.End)
}

func (s TimeSlot) UTC() TimeSlot {
	return TimeSlot{Start: s.Start.UTC(), End: s.End.UTC()}
}

func (s TimeSlot) Truncate(d time.Duration) TimeSlot {
	return TimeSlot{Start: s.Start.Truncate(d), End: s.End.Truncate(d)}
}

// NormalizeAvailability validates slots and returns them sorted by start, in UTC.
// Overlapping slots are rejected rather than merged.
func NormalizeAvailability(slots []TimeSlot) ([]TimeSlot, error) {
	out := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		out = append(out, s.UTC())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	for i := 1; i < len(out); i++ {
		if out[i-1].Overlaps(out[i]) {
			return nil, errors.New("availability slots must not overlap")
		}
	}
	return out, nil
}
