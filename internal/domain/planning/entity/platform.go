package entity

import "fmt"

// Platform identifies a social network a post can be published to
type Platform string

const (
	PlatformInstagram      Platform = "instagram"
	PlatformTikTok         Platform = "tiktok"
	PlatformYouTube        Platform = "youtube"
	PlatformLinkedIn       Platform = "linkedin"
	PlatformPinterest      Platform = "pinterest"
	PlatformTwitter        Platform = "twitter"
	PlatformFacebook       Platform = "facebook"
	PlatformThreads        Platform = "threads"
	PlatformBluesky        Platform = "bluesky"
	PlatformSnapchat       Platform = "snapchat"
	PlatformGoogleBusiness Platform = "googlebusiness"
	PlatformReddit         Platform = "reddit"
	PlatformTelegram       Platform = "telegram"
)

// Platforms is the closed set of supported platforms, in display order.
var Platforms = []Platform{
	PlatformInstagram,
	PlatformTikTok,
	PlatformYouTube,
	PlatformLinkedIn,
	PlatformPinterest,
	PlatformTwitter,
	PlatformFacebook,
	PlatformThreads,
	PlatformBluesky,
	PlatformSnapchat,
	PlatformGoogleBusiness,
	PlatformReddit,
	PlatformTelegram,
}

// IsValid reports whether p belongs to the supported set
func (p Platform) IsValid() bool {
	switch p {
	case PlatformInstagram, PlatformTikTok, PlatformYouTube, PlatformLinkedIn,
		PlatformPinterest, PlatformTwitter, PlatformFacebook, PlatformThreads,
		PlatformBluesky, PlatformSnapchat, PlatformGoogleBusiness, PlatformReddit,
		PlatformTelegram:
		return true
	}
	return false
}

// DisplayName returns the human readable platform name
func (p Platform) DisplayName() string {
	switch p {
	case PlatformInstagram:
		return "Instagram"
	case PlatformTikTok:
		return "TikTok"
	case PlatformYouTube:
		return "YouTube"
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformPinterest:
		return "Pinterest"
	case PlatformTwitter:
		return "X (Twitter)"
	case PlatformFacebook:
		return "Facebook"
	case PlatformThreads:
		return "Threads"
	case PlatformBluesky:
		return "Bluesky"
	case PlatformSnapchat:
		return "Snapchat"
	case PlatformGoogleBusiness:
		return "Google"
	case PlatformReddit:
		return "Reddit"
	case PlatformTelegram:
		return "Telegram"
	default:
		return string(p)
	}
}

// RequiresEntitySelection reports whether connecting an account of this
// platform needs a page/board/location pick after OAuth.
func (p Platform) RequiresEntitySelection() bool {
	switch p {
	case PlatformFacebook, PlatformLinkedIn, PlatformPinterest, PlatformGoogleBusiness:
		return true
	}
	return false
}

// ParsePlatform parses a string into a Platform
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
	}
	return p, nil
}
