package models

import "fmt"

// Platform identifies a social platform an analysis worker can scrape.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformSpotify   Platform = "spotify"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
)

// PlatformAll is the request sentinel for a combined ("wrapped") run across
// every platform. It is never stored on a job row.
const PlatformAll = "all"

// AllPlatforms returns the platforms dispatched by a combined run, in stable order.
func AllPlatforms() []Platform {
	return []Platform{PlatformTwitter, PlatformSpotify, PlatformTikTok, PlatformInstagram}
}

// ParsePlatform validates a platform string from a request or event payload.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformTwitter, PlatformSpotify, PlatformTikTok, PlatformInstagram:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}
