package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PlatformData is the platform specific payload of a target.
// The set of implementations is closed: one struct per platform that accepts
// extra options, selected by DecodePlatformData.
type PlatformData interface {
	Platform() Platform
	Validate() error
	isPlatformData()
}

// TikTokData holds TikTok publishing options
type TikTokData struct {
	PrivacyLevel          string `json:"privacy_level"` // PUBLIC_TO_EVERYONE, MUTUAL_FOLLOW_FRIENDS, SELF_ONLY
	AllowComment          bool   `json:"allow_comment"`
	AllowDuet             bool   `json:"allow_duet"`
	AllowStitch           bool   `json:"allow_stitch"`
	CommercialContentType string `json:"commercial_content_type"` // none, brand_organic, brand_content
	VideoCoverTimestampMs *int   `json:"video_cover_timestamp_ms,omitempty"`
	PhotoCoverIndex       *int   `json:"photo_cover_index,omitempty"`
}

// YouTubeData holds YouTube publishing options
type YouTubeData struct {
	Title       string `json:"title"`
	Visibility  string `json:"visibility"` // public, private, unlisted
	MadeForKids bool   `json:"made_for_kids"`
}

// PinterestData holds Pinterest publishing options
type PinterestData struct {
	Title   string `json:"title,omitempty"`
	BoardID string `json:"board_id"`
	Link    string `json:"link,omitempty"`
}

// InstagramData holds Instagram publishing options
type InstagramData struct {
	ContentType   string   `json:"content_type,omitempty"` // "" or story
	ShareToFeed   *bool    `json:"share_to_feed,omitempty"`
	Collaborators []string `json:"collaborators,omitempty"`
	ThumbOffset   *int     `json:"thumb_offset,omitempty"`
}

// FacebookData holds Facebook publishing options
type FacebookData struct {
	ContentType  string `json:"content_type,omitempty"` // "" or story
	FirstComment string `json:"first_comment,omitempty"`
}

// LinkedInData holds LinkedIn publishing options
type LinkedInData struct {
	FirstComment       string `json:"first_comment,omitempty"`
	DisableLinkPreview bool   `json:"disable_link_preview,omitempty"`
}

// CallToAction is a Google Business post button
type CallToAction struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// GoogleBusinessData holds Google Business Profile publishing options
type GoogleBusinessData struct {
	CallToAction *CallToAction `json:"call_to_action,omitempty"`
}

// TelegramData holds Telegram publishing options
type TelegramData struct {
	ParseMode           string `json:"parse_mode,omitempty"` // "" or HTML
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

// ThreadItem is one follow-up entry of a Threads thread
type ThreadItem struct {
	Content    string      `json:"content"`
	MediaItems []MediaItem `json:"media_items,omitempty"`
}

// ThreadsData holds Threads publishing options
type ThreadsData struct {
	ThreadItems []ThreadItem `json:"thread_items,omitempty"`
}

func (TikTokData) Platform() Platform         { return PlatformTikTok }
func (YouTubeData) Platform() Platform        { return PlatformYouTube }
func (PinterestData) Platform() Platform      { return PlatformPinterest }
func (InstagramData) Platform() Platform      { return PlatformInstagram }
func (FacebookData) Platform() Platform       { return PlatformFacebook }
func (LinkedInData) Platform() Platform       { return PlatformLinkedIn }
func (GoogleBusinessData) Platform() Platform { return PlatformGoogleBusiness }
func (TelegramData) Platform() Platform       { return PlatformTelegram }
func (ThreadsData) Platform() Platform        { return PlatformThreads }

func (TikTokData) isPlatformData()         {}
func (YouTubeData) isPlatformData()        {}
func (PinterestData) isPlatformData()      {}
func (InstagramData) isPlatformData()      {}
func (FacebookData) isPlatformData()       {}
func (LinkedInData) isPlatformData()       {}
func (GoogleBusinessData) isPlatformData() {}
func (TelegramData) isPlatformData()       {}
func (ThreadsData) isPlatformData()        {}

func (d TikTokData) Validate() error {
	switch d.PrivacyLevel {
	case "PUBLIC_TO_EVERYONE", "MUTUAL_FOLLOW_FRIENDS", "SELF_ONLY":
	default:
		return fmt.Errorf("%w: tiktok privacy level %q", ErrInvalidPlatformData, d.PrivacyLevel)
	}
	switch d.CommercialContentType {
	case "", "none", "brand_organic", "brand_content":
	default:
		return fmt.Errorf("%w: tiktok commercial content type %q", ErrInvalidPlatformData, d.CommercialContentType)
	}
	if d.VideoCoverTimestampMs != nil && *d.VideoCoverTimestampMs < 0 {
		return fmt.Errorf("%w: tiktok video cover timestamp is negative", ErrInvalidPlatformData)
	}
	if d.PhotoCoverIndex != nil && *d.PhotoCoverIndex < 0 {
		return fmt.Errorf("%w: tiktok photo cover index is negative", ErrInvalidPlatformData)
	}
	return nil
}

func (d YouTubeData) Validate() error {
	if d.Title == "" {
		return fmt.Errorf("%w: youtube title is required", ErrInvalidPlatformData)
	}
	switch d.Visibility {
	case "public", "private", "unlisted":
		return nil
	default:
		return fmt.Errorf("%w: youtube visibility %q", ErrInvalidPlatformData, d.Visibility)
	}
}

func (d PinterestData) Validate() error {
	if d.BoardID == "" {
		return fmt.Errorf("%w: pinterest board is required", ErrInvalidPlatformData)
	}
	return nil
}

func (d InstagramData) Validate() error {
	if d.ContentType != "" && d.ContentType != "story" {
		return fmt.Errorf("%w: instagram content type %q", ErrInvalidPlatformData, d.ContentType)
	}
	return nil
}

func (d FacebookData) Validate() error {
	if d.ContentType != "" && d.ContentType != "story" {
		return fmt.Errorf("%w: facebook content type %q", ErrInvalidPlatformData, d.ContentType)
	}
	return nil
}

func (d LinkedInData) Validate() error { return nil }

func (d GoogleBusinessData) Validate() error {
	if d.CallToAction != nil && (d.CallToAction.Type == "" || d.CallToAction.URL == "") {
		return fmt.Errorf("%w: google business call to action needs type and url", ErrInvalidPlatformData)
	}
	return nil
}

func (d TelegramData) Validate() error {
	if d.ParseMode != "" && d.ParseMode != "HTML" {
		return fmt.Errorf("%w: telegram parse mode %q", ErrInvalidPlatformData, d.ParseMode)
	}
	return nil
}

func (d ThreadsData) Validate() error {
	for i, item := range d.ThreadItems {
		if item.Content == "" && len(item.MediaItems) == 0 {
			return fmt.Errorf("%w: threads item %d is empty", ErrInvalidPlatformData, i)
		}
		for _, m := range item.MediaItems {
			if err := m.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodePlatformData decodes raw JSON into the variant owned by platform p.
// A nil result with nil error means the target carries no specific data.
func DecodePlatformData(p Platform, raw json.RawMessage) (PlatformData, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var (
		data PlatformData
		err  error
	)
	switch p {
	case PlatformTikTok:
		data, err = decodeVariant[TikTokData](raw)
	case PlatformYouTube:
		data, err = decodeVariant[YouTubeData](raw)
	case PlatformPinterest:
		data, err = decodeVariant[PinterestData](raw)
	case PlatformInstagram:
		data, err = decodeVariant[InstagramData](raw)
	case PlatformFacebook:
		data, err = decodeVariant[FacebookData](raw)
	case PlatformLinkedIn:
		data, err = decodeVariant[LinkedInData](raw)
	case PlatformGoogleBusiness:
		data, err = decodeVariant[GoogleBusinessData](raw)
	case PlatformTelegram:
		data, err = decodeVariant[TelegramData](raw)
	case PlatformThreads:
		data, err = decodeVariant[ThreadsData](raw)
	case PlatformTwitter, PlatformBluesky, PlatformSnapchat, PlatformReddit:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPlatformData, err)
		}
		if len(fields) > 0 {
			return nil, fmt.Errorf("%w: %s accepts no specific data", ErrInvalidPlatformData, p)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlatform, p)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPlatformData, p, err)
	}

	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}

func decodeVariant[T PlatformData](raw json.RawMessage) (PlatformData, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
