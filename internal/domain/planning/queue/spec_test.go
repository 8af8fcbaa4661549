package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
)

func TestParseSlotSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		spec  string
		count int
		first entity.QueueSlot
	}{
		{name: "weekdays at nine", spec: "0 9 * * 1-5", count: 5, first: entity.QueueSlot{Weekday: time.Monday, Hour: 9}},
		{name: "two times on monday", spec: "30 8,17 * * 1", count: 2, first: entity.QueueSlot{Weekday: time.Monday, Hour: 8, Minute: 30}},
		{name: "daily descriptor", spec: "@daily", count: 7, first: entity.QueueSlot{Weekday: time.Sunday}},
		{name: "weekly descriptor", spec: "@weekly", count: 1, first: entity.QueueSlot{Weekday: time.Sunday}},
		{name: "every quarter hour", spec: "*/15 * * * *", count: 7 * 24 * 4, first: entity.QueueSlot{Weekday: time.Sunday}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			slots, err := ParseSlotSpec(tt.spec)
			if err != nil {
				t.Fatalf("ParseSlotSpec(%q): %v", tt.spec, err)
			}
			if len(slots) != tt.count {
				t.Fatalf("expected %d slots, got %d", tt.count, len(slots))
			}
			if slots[0] != tt.first {
				t.Fatalf("expected first slot %+v, got %+v", tt.first, slots[0])
			}
		})
	}
}

func TestParseSlotSpecInvalid(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{
		"",
		"not a spec",
		"0 9 1 * *",   // day of month
		"0 9 * 6 *",   // month
		"@monthly",    // day of month fixed
		"@every 1h",   // not weekly
		"* * * * *",   // too many slots
		"TZ=UTC 0 9 * * 1",
		"0 0 9 * * 1", // seconds field
	} {
		if _, err := ParseSlotSpec(spec); !errors.Is(err, entity.ErrInvalidSlotSpec) {
			t.Fatalf("ParseSlotSpec(%q): expected ErrInvalidSlotSpec, got %v", spec, err)
		}
	}
}

func TestParseSlotSpecsMerges(t *testing.T) {
	t.Parallel()

	slots, err := ParseSlotSpecs([]string{"0 9 * * 1-5", "0 9 * * 1", "0 12 * * 6"})
	if err != nil {
		t.Fatalf("ParseSlotSpecs: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}
	tmpl := entity.QueueTemplate{Timezone: "UTC", Slots: slots}
	if err := tmpl.Validate(); err != nil {
		t.Fatalf("merged slots invalid: %v", err)
	}
	if slots[5].Weekday != time.Saturday {
		t.Fatalf("expected saturday last, got %s", slots[5].Weekday)
	}
}
