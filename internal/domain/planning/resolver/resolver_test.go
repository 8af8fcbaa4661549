package resolver

import (
	"errors"
	"testing"
	"time"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
	"github.com/vadim/neo-planner/internal/domain/planning/queue"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestResolveNowReadsClockAtResolution(t *testing.T) {
	t.Parallel()

	current := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := New(queue.NewPlanner(), WithClock(func() time.Time { return current }))

	intent := entity.NowIntent{}
	first, err := r.Resolve(intent, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	current = current.Add(time.Hour)
	second, err := r.Resolve(intent, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !second.UTCInstant.Equal(first.UTCInstant.Add(time.Hour)) {
		t.Fatalf("now intent fixed too early: %s then %s", first.UTCInstant, second.UTCInstant)
	}
	if second.SourceIntent != intent {
		t.Fatalf("source intent not kept")
	}
}

func TestResolveScheduled(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New(queue.NewPlanner(), WithClock(fixedClock(now)))

	tests := []struct {
		name    string
		intent  entity.ScheduledIntent
		want    time.Time
		kind    entity.WallClockKind
		wantErr error
	}{
		{
			name:   "paris winter",
			intent: entity.ScheduledIntent{Date: "2024-02-10", Time: "14:00", Timezone: "Europe/Paris"},
			want:   time.Date(2024, 2, 10, 13, 0, 0, 0, time.UTC),
			kind:   entity.WallClockNormal,
		},
		{
			name:   "new york spring forward gap",
			intent: entity.ScheduledIntent{Date: "2024-03-10", Time: "02:30", Timezone: "America/New_York"},
			want:   time.Date(2024, 3, 10, 7, 30, 0, 0, time.UTC),
			kind:   entity.WallClockGap,
		},
		{
			name:    "invalid zone",
			intent:  entity.ScheduledIntent{Date: "2024-02-10", Time: "14:00", Timezone: "Paris"},
			wantErr: entity.ErrInvalidTimezone,
		},
		{
			name:    "empty zone",
			intent:  entity.ScheduledIntent{Date: "2024-02-10", Time: "14:00"},
			wantErr: entity.ErrInvalidTimezone,
		},
		{
			name:    "malformed time",
			intent:  entity.ScheduledIntent{Date: "2024-02-10", Time: "25:00", Timezone: "UTC"},
			wantErr: entity.ErrInvalidLocalTime,
		},
		{
			name:    "malformed date",
			intent:  entity.ScheduledIntent{Date: "2024-02-30", Time: "10:00", Timezone: "UTC"},
			wantErr: entity.ErrInvalidLocalTime,
		},
		{
			name:    "in the past",
			intent:  entity.ScheduledIntent{Date: "2023-12-31", Time: "23:00", Timezone: "UTC"},
			want:    time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC),
			kind:    entity.WallClockNormal,
			wantErr: entity.ErrScheduleInPast,
		},
		{
			name:    "exactly now is not future",
			intent:  entity.ScheduledIntent{Date: "2024-01-01", Time: "00:00", Timezone: "UTC"},
			want:    now,
			kind:    entity.WallClockNormal,
			wantErr: entity.ErrScheduleInPast,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.Resolve(tt.intent, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if tt.want.IsZero() {
					return
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.UTCInstant.Equal(tt.want) {
				t.Fatalf("expected %s, got %s", tt.want, got.UTCInstant)
			}
			if got.WallClock != tt.kind {
				t.Fatalf("expected wall clock %s, got %s", tt.kind, got.WallClock)
			}
		})
	}
}

func TestResolveQueue(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	r := New(queue.NewPlanner(), WithClock(fixedClock(now)))
	state := &QueueState{
		Template: entity.QueueTemplate{
			ProfileID: "prof-1",
			Timezone:  "UTC",
			Slots:     []entity.QueueSlot{{Weekday: time.Monday, Hour: 9}},
		},
		Occupied: []time.Time{time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)},
	}

	got, err := r.Resolve(entity.QueueIntent{ProfileID: "prof-1"}, state)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := time.Date(2024, 1, 22, 9, 0, 0, 0, time.UTC)
	if !got.UTCInstant.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got.UTCInstant)
	}

	if _, err := r.Resolve(entity.QueueIntent{ProfileID: "prof-2"}, state); !errors.Is(err, entity.ErrQueueStateMismatch) {
		t.Fatalf("expected ErrQueueStateMismatch, got %v", err)
	}
	if _, err := r.Resolve(entity.QueueIntent{ProfileID: "prof-1"}, nil); !errors.Is(err, entity.ErrInvalidIntent) {
		t.Fatalf("expected ErrInvalidIntent, got %v", err)
	}

	empty := &QueueState{Template: entity.QueueTemplate{ProfileID: "prof-1", Timezone: "UTC"}}
	if _, err := r.Resolve(entity.QueueIntent{ProfileID: "prof-1"}, empty); !errors.Is(err, entity.ErrEmptyQueueTemplate) {
		t.Fatalf("expected ErrEmptyQueueTemplate, got %v", err)
	}
	if _, err := r.Resolve(nil, nil); !errors.Is(err, entity.ErrInvalidIntent) {
		t.Fatalf("expected ErrInvalidIntent, got %v", err)
	}
}

func TestPresetIntent(t *testing.T) {
	t.Parallel()

	// Sunday 2024-06-02 23:30 UTC is already Monday 2024-06-03 in Tokyo.
	now := time.Date(2024, 6, 2, 23, 30, 0, 0, time.UTC)
	r := New(queue.NewPlanner(), WithClock(fixedClock(now)))

	tests := []struct {
		preset Preset
		zone   string
		date   string
		time   string
	}{
		{PresetTomorrowMorning, "UTC", "2024-06-03", "09:00"},
		{PresetTomorrowEvening, "UTC", "2024-06-03", "18:00"},
		{PresetNextMonday, "UTC", "2024-06-03", "10:00"},
		{PresetTomorrowMorning, "Asia/Tokyo", "2024-06-04", "09:00"},
		{PresetNextMonday, "Asia/Tokyo", "2024-06-10", "10:00"},
	}
	for _, tt := range tests {
		intent, err := r.PresetIntent(tt.preset, tt.zone)
		if err != nil {
			t.Fatalf("PresetIntent(%s, %s): %v", tt.preset, tt.zone, err)
		}
		if intent.Date != tt.date || intent.Time != tt.time || intent.Timezone != tt.zone {
			t.Fatalf("PresetIntent(%s, %s) = %+v", tt.preset, tt.zone, intent)
		}
		if _, err := r.Resolve(intent, nil); err != nil {
			t.Fatalf("preset %s did not resolve into the future: %v", tt.preset, err)
		}
	}

	if _, err := ParsePreset("yesterday"); !errors.Is(err, entity.ErrInvalidIntent) {
		t.Fatalf("expected ErrInvalidIntent, got %v", err)
	}
	if _, err := r.PresetIntent(PresetNextMonday, "Local"); !errors.Is(err, entity.ErrInvalidTimezone) {
		t.Fatalf("expected ErrInvalidTimezone, got %v", err)
	}
}
