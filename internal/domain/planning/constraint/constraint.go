// Package constraint evaluates draft posts against per-platform publishing rules.
package constraint

import (
	"fmt"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
)

func limit(n int) *int { return &n }

// Table maps every platform to its constraint row
type Table map[entity.Platform]entity.PlatformConstraint

// DefaultTable is the built-in rule set. Platforms without limits still get a row.
func DefaultTable() Table {
	return Table{
		entity.PlatformInstagram:      {MaxCarouselItems: limit(10)},
		entity.PlatformTikTok:         {},
		entity.PlatformYouTube:        {RequiresVideo: true},
		entity.PlatformLinkedIn:       {MaxImages: limit(20)},
		entity.PlatformPinterest:      {},
		entity.PlatformTwitter:        {MaxImages: limit(4)},
		entity.PlatformFacebook:       {},
		entity.PlatformThreads:        {MaxCarouselItems: limit(10)},
		entity.PlatformBluesky:        {MaxImages: limit(4)},
		entity.PlatformSnapchat:       {RequiresMedia: true},
		entity.PlatformGoogleBusiness: {NoVideo: true},
		entity.PlatformReddit:         {},
		entity.PlatformTelegram:       {},
	}
}

// Validator checks drafts against a complete constraint table
type Validator struct {
	table Table
}

// NewValidator creates a validator. A table missing any platform is a
// configuration defect and is rejected here rather than at validation time.
func NewValidator(table Table) (*Validator, error) {
	for _, p := range entity.Platforms {
		if _, ok := table[p]; !ok {
			return nil, fmt.Errorf("constraint table has no row for %s", p)
		}
	}
	for p := range table {
		if !p.IsValid() {
			return nil, fmt.Errorf("constraint table row for unknown platform %q", p)
		}
	}
	return &Validator{table: table}, nil
}

// MustNewValidator is NewValidator for static tables
func MustNewValidator(table Table) *Validator {
	v, err := NewValidator(table)
	if err != nil {
		panic(err)
	}
	return v
}

// Rule returns the constraint row for p
func (v *Validator) Rule(p entity.Platform) (entity.PlatformConstraint, bool) {
	c, ok := v.table[p]
	return c, ok
}

// Validate evaluates every target of the draft. Each target gets at most one
// violation (the first failing rule); no target short-circuits the others.
func (v *Validator) Validate(draft *entity.DraftPost) Report {
	images, videos := draft.MediaCounts()
	items := len(draft.MediaItems)

	report := Report{Targets: make([]TargetReport, 0, len(draft.Targets))}
	for _, target := range draft.Targets {
		tr := TargetReport{
			Platform:   target.Platform,
			AccountID:  target.AccountID,
			Violations: []entity.Violation{},
		}
		if rule, ok := v.table[target.Platform]; ok {
			if viol, bad := evaluate(rule, images, videos, items); bad {
				tr.Violations = append(tr.Violations, viol)
			}
		}
		report.Targets = append(report.Targets, tr)
	}
	return report
}

func evaluate(rule entity.PlatformConstraint, images, videos, items int) (entity.Violation, bool) {
	hasVideo := videos > 0
	hasImages := images > 0

	switch {
	case rule.RequiresVideo && !hasVideo:
		return entity.Violation{
			Kind:    entity.ViolationMissingRequiredVideo,
			Message: "a video is required",
		}, true
	case rule.RequiresMedia && !hasVideo && !hasImages:
		return entity.Violation{
			Kind:    entity.ViolationMissingRequiredMedia,
			Message: "an image or video is required",
		}, true
	case rule.NoVideo && hasVideo:
		return entity.Violation{
			Kind:    entity.ViolationVideoNotSupported,
			Message: "videos are not supported",
		}, true
	case rule.MaxImages != nil && images > *rule.MaxImages:
		return entity.Violation{
			Kind:    entity.ViolationTooManyImages,
			Message: fmt.Sprintf("at most %d images allowed", *rule.MaxImages),
			Limit:   *rule.MaxImages,
			Actual:  images,
		}, true
	case rule.MaxCarouselItems != nil && items > *rule.MaxCarouselItems:
		return entity.Violation{
			Kind:    entity.ViolationTooManyCarouselItems,
			Message: fmt.Sprintf("at most %d carousel items allowed", *rule.MaxCarouselItems),
			Limit:   *rule.MaxCarouselItems,
			Actual:  items,
		}, true
	}
	return entity.Violation{}, false
}
