package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
)

// maxSpecSlots caps how many weekly slots a single spec may expand to
const maxSpecSlots = 7 * 24 * 4

// starBit marks a cron field written as "*" (mirrors robfig/cron's internal flag)
const starBit = 1 << 63

var slotParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSlotSpec expands a 5-field cron expression such as "0 9 * * 1-5" into
// weekly queue slots. Day-of-month and month must be "*"; the queue repeats
// weekly and its zone comes from the profile, so TZ prefixes and @every are rejected.
func ParseSlotSpec(spec string) ([]entity.QueueSlot, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("%w: empty spec", entity.ErrInvalidSlotSpec)
	}
	if strings.HasPrefix(spec, "TZ=") || strings.HasPrefix(spec, "CRON_TZ=") {
		return nil, fmt.Errorf("%w: %q: zone comes from the profile", entity.ErrInvalidSlotSpec, spec)
	}

	sched, err := slotParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", entity.ErrInvalidSlotSpec, spec, err)
	}
	ss, ok := sched.(*cron.SpecSchedule)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a weekly schedule", entity.ErrInvalidSlotSpec, spec)
	}
	if ss.Dom&starBit == 0 || ss.Month&starBit == 0 {
		return nil, fmt.Errorf("%w: %q: day of month and month must be *", entity.ErrInvalidSlotSpec, spec)
	}

	var slots []entity.QueueSlot
	for d := time.Sunday; d <= time.Saturday; d++ {
		if ss.Dow&(1<<uint(d)) == 0 {
			continue
		}
		for h := 0; h < 24; h++ {
			if ss.Hour&(1<<uint(h)) == 0 {
				continue
			}
			for m := 0; m < 60; m++ {
				if ss.Minute&(1<<uint(m)) == 0 {
					continue
				}
				slots = append(slots, entity.QueueSlot{Weekday: d, Hour: h, Minute: m})
				if len(slots) > maxSpecSlots {
					return nil, fmt.Errorf("%w: %q expands to more than %d slots", entity.ErrInvalidSlotSpec, spec, maxSpecSlots)
				}
			}
		}
	}
	return slots, nil
}

// ParseSlotSpecs expands several specs into one deduplicated, ordered slot list
func ParseSlotSpecs(specs []string) ([]entity.QueueSlot, error) {
	seen := make(map[entity.QueueSlot]struct{})
	var all []entity.QueueSlot
	for _, spec := range specs {
		slots, err := ParseSlotSpec(spec)
		if err != nil {
			return nil, err
		}
		for _, s := range slots {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			all = append(all, s)
		}
	}
	tmpl := entity.QueueTemplate{Slots: all}
	return tmpl.SortedSlots(), nil
}
