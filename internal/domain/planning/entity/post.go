package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// MediaType represents the type of media file
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// IsValid reports whether t is a known media type
func (t MediaType) IsValid() bool {
	return t == MediaTypeImage || t == MediaTypeVideo
}

// MediaItem is a single media file attached to a draft post
type MediaItem struct {
	Type     MediaType `json:"type"`
	URL      string    `json:"url"`
	Width    *int      `json:"width,omitempty"`
	Height   *int      `json:"height,omitempty"`
	Duration *float64  `json:"duration,omitempty"` // seconds, videos only
}

// Validate validates a media item
func (m MediaItem) Validate() error {
	if !m.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidMediaType, m.Type)
	}
	if m.URL == "" {
		return ErrEmptyMediaURL
	}
	return nil
}

// PlatformTarget is a single (platform, account) pair a post is published to
type PlatformTarget struct {
	Platform      Platform     `json:"platform"`
	AccountID     string       `json:"account_id"`
	CustomContent string       `json:"custom_content,omitempty"`
	Data          PlatformData `json:"platform_specific_data,omitempty"`
}

// EffectiveContent returns the text published to this target
func (t PlatformTarget) EffectiveContent(content string) string {
	if t.CustomContent != "" {
		return t.CustomContent
	}
	return content
}

// UnmarshalJSON decodes platform_specific_data into the variant owned by the target platform
func (t *PlatformTarget) UnmarshalJSON(b []byte) error {
	var raw struct {
		Platform      Platform        `json:"platform"`
		AccountID     string          `json:"account_id"`
		CustomContent string          `json:"custom_content"`
		Data          json.RawMessage `json:"platform_specific_data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if !raw.Platform.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPlatform, raw.Platform)
	}

	data, err := DecodePlatformData(raw.Platform, raw.Data)
	if err != nil {
		return err
	}

	*t = PlatformTarget{
		Platform:      raw.Platform,
		AccountID:     raw.AccountID,
		CustomContent: raw.CustomContent,
		Data:          data,
	}
	return nil
}

// Validate validates a single target
func (t PlatformTarget) Validate() error {
	if !t.Platform.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPlatform, t.Platform)
	}
	if t.AccountID == "" {
		return ErrEmptyAccountID
	}
	if t.Data != nil {
		if t.Data.Platform() != t.Platform {
			return fmt.Errorf("%w: %s data on %s target", ErrPlatformDataMismatch, t.Data.Platform(), t.Platform)
		}
		if err := t.Data.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DraftPost is content composed once and fanned out to several targets
type DraftPost struct {
	Content    string           `json:"content"`
	MediaItems []MediaItem      `json:"media_items"`
	Targets    []PlatformTarget `json:"targets"`
}

// Validate checks the structural invariants of a draft.
// Platform constraints are checked separately and reported as data.
func (d *DraftPost) Validate() error {
	if len(d.Targets) == 0 {
		return ErrNoTargets
	}

	seen := make(map[string]struct{}, len(d.Targets))
	for _, t := range d.Targets {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, ok := seen[t.AccountID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateAccount, t.AccountID)
		}
		seen[t.AccountID] = struct{}{}
	}

	for _, m := range d.MediaItems {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MediaCounts returns the number of images and videos attached to the draft
func (d *DraftPost) MediaCounts() (images, videos int) {
	for _, m := range d.MediaItems {
		switch m.Type {
		case MediaTypeImage:
			images++
		case MediaTypeVideo:
			videos++
		}
	}
	return images, videos
}

// PostStatus represents the lifecycle status of a post
type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

// IsValid reports whether s is a known status
func (s PostStatus) IsValid() bool {
	switch s {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublishing, PostStatusPublished, PostStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next:
// draft -> scheduled -> publishing -> published | failed. A scheduled post may
// also fail before publishing starts, when it could not be handed off.
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	switch s {
	case PostStatusDraft:
		return next == PostStatusScheduled
	case PostStatusScheduled:
		return next == PostStatusPublishing || next == PostStatusFailed
	case PostStatusPublishing:
		return next == PostStatusPublished || next == PostStatusFailed
	}
	return false
}

// OccupiesQueue reports whether a post in this status holds its queue slot
func (s PostStatus) OccupiesQueue() bool {
	return s == PostStatusScheduled || s == PostStatusPublishing
}

// Post is a persisted post as seen by the calendar
type Post struct {
	ID           string           `json:"id"`
	ProfileID    string           `json:"profile_id"`
	Status       PostStatus       `json:"status"`
	Content      string           `json:"content"`
	MediaItems   []MediaItem      `json:"media_items"`
	Targets      []PlatformTarget `json:"targets"`
	ScheduledFor *time.Time       `json:"scheduled_for,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// PublishTarget is one fully resolved delivery instruction
type PublishTarget struct {
	Platform  Platform     `json:"platform"`
	AccountID string       `json:"account_id"`
	Content   string       `json:"content"`
	Data      PlatformData `json:"platform_specific_data,omitempty"`
}

// PublishPayload is handed to the external publisher once a post is
// validated, resolved and persisted.
type PublishPayload struct {
	PostID          string          `json:"post_id"`
	ProfileID       string          `json:"profile_id,omitempty"`
	Content         string          `json:"content"`
	MediaItems      []MediaItem     `json:"media_items"`
	Targets         []PublishTarget `json:"targets"`
	ScheduledForUTC time.Time       `json:"scheduled_for_utc"`
}

// NewPublishPayload builds the payload for the given targets of a draft
func NewPublishPayload(postID, profileID string, draft *DraftPost, targets []PlatformTarget, at time.Time) PublishPayload {
	out := make([]PublishTarget, 0, len(targets))
	for _, t := range targets {
		out = append(out, PublishTarget{
			Platform:  t.Platform,
			AccountID: t.AccountID,
			Content:   t.EffectiveContent(draft.Content),
			Data:      t.Data,
		})
	}
	return PublishPayload{
		PostID:          postID,
		ProfileID:       profileID,
		Content:         draft.Content,
		MediaItems:      draft.MediaItems,
		Targets:         out,
		ScheduledForUTC: at.UTC(),
	}
}
