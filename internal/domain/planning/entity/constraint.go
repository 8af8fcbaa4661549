package entity

// PlatformConstraint is one row of the per-platform publishing rules.
// Nil limits mean "no limit".
type PlatformConstraint struct {
	RequiresMedia    bool `json:"requires_media,omitempty"`
	RequiresVideo    bool `json:"requires_video,omitempty"`
	NoVideo          bool `json:"no_video,omitempty"`
	MaxImages        *int `json:"max_images,omitempty"`
	MaxCarouselItems *int `json:"max_carousel_items,omitempty"`
}

// ViolationKind names a reason a target cannot accept a draft
type ViolationKind string

const (
	ViolationMissingRequiredVideo ViolationKind = "missing_required_video"
	ViolationMissingRequiredMedia ViolationKind = "missing_required_media"
	ViolationVideoNotSupported    ViolationKind = "video_not_supported"
	ViolationTooManyImages        ViolationKind = "too_many_images"
	ViolationTooManyCarouselItems ViolationKind = "too_many_carousel_items"
)

// Violation is a structured constraint failure for one target
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
	Limit   int           `json:"limit,omitempty"`
	Actual  int           `json:"actual,omitempty"`
}
