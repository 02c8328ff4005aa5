package tracking

import "strings"

// Classification buckets. Heuristics are deliberately coarse, case-insensitive
// substring checks with first-match-wins in a fixed priority order; real
// user-agent parsing is out of scope.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"

	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserEdge    = "Edge"

	OSWindows = "Windows"
	OSMac     = "Mac/iOS"
	OSAndroid = "Android"
	OSLinux   = "Linux"

	Unknown = "Unknown"
)

// Classification holds the derived fields computed from a user-agent string
type Classification struct {
	DeviceType string
	Browser    string
	OS         string
}

// Classify derives device type, browser, and OS from a raw user-agent string.
// Pure computation; total, never fails (unmatched inputs default-case).
func Classify(userAgent string) Classification {
	ua := strings.ToLower(userAgent)
	return Classification{
		DeviceType: classifyDevice(ua),
		Browser:    classifyBrowser(ua),
		OS:         classifyOS(ua),
	}
}

// classifyDevice: mobile-or-android before tablet-or-ipad, default desktop
func classifyDevice(ua string) string {
	switch {
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "android"):
		return DeviceMobile
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}

// classifyBrowser: Chrome, Firefox, Safari, Edge, else Unknown
func classifyBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "chrome"):
		return BrowserChrome
	case strings.Contains(ua, "firefox"):
		return BrowserFirefox
	case strings.Contains(ua, "safari"):
		return BrowserSafari
	case strings.Contains(ua, "edge"):
		return BrowserEdge
	default:
		return Unknown
	}
}

// classifyOS: Windows, Mac-or-iOS, Android, Linux, else Unknown.
// The Apple bucket also matches the ipad/iphone device tokens, since bare
// iOS user agents don't always carry a "Mac OS X" or "iOS" token.
func classifyOS(ua string) string {
	switch {
	case strings.Contains(ua, "windows"):
		return OSWindows
	case strings.Contains(ua, "mac") || strings.Contains(ua, "ios") ||
		strings.Contains(ua, "ipad") || strings.Contains(ua, "iphone"):
		return OSMac
	case strings.Contains(ua, "android"):
		return OSAndroid
	case strings.Contains(ua, "linux"):
		return OSLinux
	default:
		return Unknown
	}
}
