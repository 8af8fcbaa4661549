package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// IntentKind names the active variant of a ScheduleIntent
type IntentKind string

const (
	IntentNow       IntentKind = "now"
	IntentScheduled IntentKind = "scheduled"
	IntentQueue     IntentKind = "queue"
)

// ScheduleIntent describes when a post should go out.
// Exactly one of NowIntent, ScheduledIntent or QueueIntent.
type ScheduleIntent interface {
	Kind() IntentKind
	isScheduleIntent()
}

// NowIntent publishes at the moment the intent is resolved
type NowIntent struct{}

// ScheduledIntent publishes at a wall-clock date and time in a named zone.
// Date and Time are kept raw so malformed values surface at resolution.
type ScheduledIntent struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Time     string `json:"time"` // HH:MM
	Timezone string `json:"timezone"`
}

// QueueIntent publishes at the next free slot of a profile's queue
type QueueIntent struct {
	ProfileID string `json:"profile_id"`
}

func (NowIntent) Kind() IntentKind       { return IntentNow }
func (ScheduledIntent) Kind() IntentKind { return IntentScheduled }
func (QueueIntent) Kind() IntentKind     { return IntentQueue }

func (NowIntent) isScheduleIntent()       {}
func (ScheduledIntent) isScheduleIntent() {}
func (QueueIntent) isScheduleIntent()     {}

func (i NowIntent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type IntentKind `json:"type"`
	}{IntentNow})
}

func (i ScheduledIntent) MarshalJSON() ([]byte, error) {
	type plain ScheduledIntent
	return json.Marshal(struct {
		Type IntentKind `json:"type"`
		plain
	}{IntentScheduled, plain(i)})
}

func (i QueueIntent) MarshalJSON() ([]byte, error) {
	type plain QueueIntent
	return json.Marshal(struct {
		Type IntentKind `json:"type"`
		plain
	}{IntentQueue, plain(i)})
}

// DecodeScheduleIntent decodes a {"type": ...} tagged intent
func DecodeScheduleIntent(b []byte) (ScheduleIntent, error) {
	var raw struct {
		Type      IntentKind `json:"type"`
		Date      string     `json:"date"`
		Time      string     `json:"time"`
		Timezone  string     `json:"timezone"`
		ProfileID string     `json:"profile_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}

	switch raw.Type {
	case IntentNow:
		return NowIntent{}, nil
	case IntentScheduled:
		return ScheduledIntent{Date: raw.Date, Time: raw.Time, Timezone: raw.Timezone}, nil
	case IntentQueue:
		if raw.ProfileID == "" {
			return nil, fmt.Errorf("%w: queue intent needs profile_id", ErrInvalidIntent)
		}
		return QueueIntent{ProfileID: raw.ProfileID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidIntent, raw.Type)
	}
}

// WallClockKind classifies how a local wall-clock time mapped onto an instant
type WallClockKind string

const (
	WallClockNormal  WallClockKind = "normal"
	WallClockGap     WallClockKind = "gap"     // skipped by a forward transition, shifted later
	WallClockOverlap WallClockKind = "overlap" // repeated by a backward transition, earlier instant chosen
)

// ResolvedSchedule is the concrete publish instant derived from an intent
type ResolvedSchedule struct {
	UTCInstant   time.Time      `json:"utc_instant"`
	SourceIntent ScheduleIntent `json:"source_intent"`
	WallClock    WallClockKind  `json:"wall_clock,omitempty"`
}
