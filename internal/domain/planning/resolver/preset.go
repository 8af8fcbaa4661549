package resolver

import (
	"fmt"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
	"github.com/vadim/neo-planner/internal/domain/planning/tz"
)

// Preset is a quick schedule choice relative to the operator's current day
type Preset string

const (
	PresetTomorrowMorning Preset = "tomorrow_morning" // tomorrow 09:00
	PresetTomorrowEvening Preset = "tomorrow_evening" // tomorrow 18:00
	PresetNextMonday      Preset = "next_monday"      // following Monday 10:00
)

// ParsePreset parses a preset name
func ParsePreset(s string) (Preset, error) {
	switch p := Preset(s); p {
	case PresetTomorrowMorning, PresetTomorrowEvening, PresetNextMonday:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown preset %q", entity.ErrInvalidIntent, s)
	}
}

// PresetIntent builds a scheduled intent for preset in zone, based on the
// zoned date at the resolver's current time.
func (r *Resolver) PresetIntent(preset Preset, zone string) (entity.ScheduledIntent, error) {
	loc, err := tz.LoadLocation(zone)
	if err != nil {
		return entity.ScheduledIntent{}, err
	}
	today := entity.DateOf(r.now().In(loc))

	var (
		date  entity.LocalDate
		clock entity.LocalTime
	)
	switch preset {
	case PresetTomorrowMorning:
		date, clock = today.AddDays(1), entity.LocalTime{Hour: 9}
	case PresetTomorrowEvening:
		date, clock = today.AddDays(1), entity.LocalTime{Hour: 18}
	case PresetNextMonday:
		days := (8 - int(today.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		date, clock = today.AddDays(days), entity.LocalTime{Hour: 10}
	default:
		return entity.ScheduledIntent{}, fmt.Errorf("%w: unknown preset %q", entity.ErrInvalidIntent, preset)
	}

	return entity.ScheduledIntent{
		Date:     date.String(),
		Time:     clock.String(),
		Timezone: zone,
	}, nil
}
