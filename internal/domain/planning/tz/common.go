package tz

import (
	"sort"
	"strings"
	"time"
)

// CommonTimezones covers major regions and population centers
var CommonTimezones = []string{
	"UTC",
	// Americas
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Anchorage",
	"America/Toronto",
	"America/Vancouver",
	"America/Mexico_City",
	"America/Sao_Paulo",
	"America/Buenos_Aires",
	"America/Santiago",
	"America/Bogota",
	"America/Lima",
	// Pacific
	"Pacific/Honolulu",
	"Pacific/Auckland",
	// Europe
	"Europe/London",
	"Europe/Paris",
	"Europe/Berlin",
	"Europe/Madrid",
	"Europe/Rome",
	"Europe/Amsterdam",
	"Europe/Brussels",
	"Europe/Stockholm",
	"Europe/Warsaw",
	"Europe/Moscow",
	"Europe/Istanbul",
	// Asia
	"Asia/Dubai",
	"Asia/Kolkata",
	"Asia/Bangkok",
	"Asia/Singapore",
	"Asia/Hong_Kong",
	"Asia/Shanghai",
	"Asia/Tokyo",
	"Asia/Seoul",
	"Asia/Jakarta",
	"Asia/Manila",
	// Australia
	"Australia/Sydney",
	"Australia/Melbourne",
	"Australia/Perth",
	"Australia/Brisbane",
	// Africa
	"Africa/Johannesburg",
	"Africa/Cairo",
	"Africa/Lagos",
}

// Options returns the common zones plus every valid extra zone,
// sorted alphabetically with UTC first. Invalid extras are dropped.
func Options(extra ...string) []string {
	set := make(map[string]struct{}, len(CommonTimezones)+len(extra))
	for _, z := range CommonTimezones {
		set[z] = struct{}{}
	}
	for _, z := range extra {
		if IsValidTimezone(z) {
			set[z] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for z := range set {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i] == "UTC" {
			return out[j] != "UTC"
		}
		if out[j] == "UTC" {
			return false
		}
		return out[i] < out[j]
	})
	return out
}

// DisplayName formats a zone for display at instant at,
// e.g. "America/New York (EST)". Unknown zones are returned unchanged.
func DisplayName(zone string, at time.Time) string {
	loc, err := LoadLocation(zone)
	if err != nil {
		return zone
	}
	name := strings.ReplaceAll(zone, "_", " ")
	abbr, _ := at.In(loc).Zone()
	if abbr == "" {
		return name
	}
	return name + " (" + abbr + ")"
}
