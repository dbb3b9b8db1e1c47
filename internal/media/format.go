package media

import (
	"fmt"
	"math"
	"strings"
)

// FormatTime renders seconds as m:ss.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatDuration renders seconds as h:mm:ss or m:ss, "Unknown" when unset.
func FormatDuration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "Unknown"
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Progress is currentTime/duration as a percentage clamped to [0, 100].
func Progress(currentTime, duration float64) float64 {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0
	}
	return math.Min(100, math.Max(0, currentTime/duration*100))
}

var platformNames = map[string]string{
	"youtube.com":    "YouTube",
	"youtu.be":       "YouTube",
	"m.youtube.com":  "YouTube",
	"soundcloud.com": "SoundCloud",
	"vimeo.com":      "Vimeo",
}

// PlatformName is the display name of a post domain.
func PlatformName(domain string) string {
	normalized := strings.TrimPrefix(strings.ToLower(domain), "www.")
	if name, ok := platformNames[normalized]; ok {
		return name
	}
	return domain
}
