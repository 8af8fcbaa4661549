package constraint

import "github.com/vadim/neo-planner/internal/domain/planning/entity"

// TargetReport lists the violations of one target. Empty means publishable.
type TargetReport struct {
	Platform   entity.Platform    `json:"platform"`
	AccountID  string             `json:"account_id"`
	Violations []entity.Violation `json:"violations"`
}

// Valid reports whether the target has no violations
func (r TargetReport) Valid() bool {
	return len(r.Violations) == 0
}

// Report is the per-target outcome of validating a draft, in target order
type Report struct {
	Targets []TargetReport `json:"targets"`
}

// Valid reports whether every target is publishable
func (r Report) Valid() bool {
	for _, t := range r.Targets {
		if !t.Valid() {
			return false
		}
	}
	return true
}

// For returns the report of the target with the given account
func (r Report) For(accountID string) (TargetReport, bool) {
	for _, t := range r.Targets {
		if t.AccountID == accountID {
			return t, true
		}
	}
	return TargetReport{}, false
}

// Invalid returns the reports that carry at least one violation
func (r Report) Invalid() []TargetReport {
	var out []TargetReport
	for _, t := range r.Targets {
		if !t.Valid() {
			out = append(out, t)
		}
	}
	return out
}

// ValidTargets returns the draft targets that passed validation
func (r Report) ValidTargets(draft *entity.DraftPost) []entity.PlatformTarget {
	out := make([]entity.PlatformTarget, 0, len(draft.Targets))
	for _, t := range draft.Targets {
		if tr, ok := r.For(t.AccountID); ok && tr.Valid() {
			out = append(out, t)
		}
	}
	return out
}
