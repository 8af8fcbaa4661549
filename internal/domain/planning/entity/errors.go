package entity

import "errors"

// Domain errors for planning
var (
	// Timezone and schedule errors
	ErrInvalidTimezone    = errors.New("invalid IANA timezone")
	ErrInvalidLocalTime   = errors.New("invalid local date or time")
	ErrScheduleInPast     = errors.New("scheduled time must be in the future")
	ErrInvalidIntent      = errors.New("invalid schedule intent")
	ErrQueueStateMismatch = errors.New("queue state does not belong to the requested profile")

	// Queue errors
	ErrEmptyQueueTemplate   = errors.New("queue template has no slots")
	ErrNoAvailableSlot      = errors.New("no available queue slot within the search horizon")
	ErrInvalidQueueTemplate = errors.New("invalid queue template")
	ErrInvalidSlotSpec      = errors.New("invalid queue slot spec")
	ErrSlotTaken            = errors.New("queue slot already reserved")
	ErrProfileNotFound      = errors.New("profile not found")

	// Draft errors
	ErrNoTargets            = errors.New("at least one target is required")
	ErrDuplicateAccount     = errors.New("account is targeted more than once")
	ErrEmptyAccountID       = errors.New("account ID is required")
	ErrInvalidPlatform      = errors.New("invalid platform")
	ErrInvalidMediaType     = errors.New("invalid media type")
	ErrEmptyMediaURL        = errors.New("media URL is required")
	ErrPlatformDataMismatch = errors.New("platform specific data does not match target platform")
	ErrInvalidPlatformData  = errors.New("invalid platform specific data")

	// Submission errors
	ErrConstraintViolations = errors.New("draft violates platform constraints")
	ErrPostNotFound         = errors.New("post not found")
	ErrInvalidStatus        = errors.New("invalid post status transition")
)
