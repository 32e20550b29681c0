package render

import (
	"fmt"
	"strings"
	"time"
)

const (
	colorGreen   = "#3fb950"
	colorAmber   = "#d29922"
	colorBlue    = "#58a6ff"
	colorRed     = "#f85149"
	colorNeutral = "#8b949e"
)

var statusColors = map[string]string{
	"online":   colorGreen,
	"running":  colorGreen,
	"up":       colorGreen,
	"idle":     colorAmber,
	"sleeping": colorAmber,
	"working":  colorBlue,
	"error":    colorRed,
	"down":     colorRed,
	"stopped":  colorRed,
	"offline":  colorRed,
}

// StatusColor maps a free-text status onto the badge palette. Unknown
// statuses are neutral gray.
func StatusColor(status string) string {
	if c, ok := statusColors[strings.ToLower(status)]; ok {
		return c
	}
	return colorNeutral
}

// GaugeColor picks the fill for a percentage bar.
func GaugeColor(pct int) string {
	switch {
	case pct > 90:
		return colorRed
	case pct > 70:
		return colorAmber
	default:
		return colorGreen
	}
}

var actionGlyphs = map[string]string{
	"alert":     "🚨",
	"task":      "✅",
	"deploy":    "🚀",
	"git":       "📝",
	"commit":    "📝",
	"check":     "🔍",
	"message":   "💬",
	"email":     "📧",
	"error":     "❌",
	"cost":      "💰",
	"heartbeat": "💓",
	"memory":    "🧠",
	"file":      "📄",
}

// ActionGlyph returns the feed icon for an action type.
func ActionGlyph(kind string) string {
	if g, ok := actionGlyphs[strings.ToLower(kind)]; ok {
		return g
	}
	return "•"
}

// TimeAgo renders the coarse age of ts relative to now. A zero ts is "never".
func TimeAgo(ts, now time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	d := now.Sub(ts)
	if d < 0 {
		return "just now"
	}
	s := int64(d / time.Second)
	if s < 60 {
		return fmt.Sprintf("%ds ago", s)
	}
	m := s / 60
	if m < 60 {
		return fmt.Sprintf("%dm ago", m)
	}
	h := m / 60
	if h < 24 {
		return fmt.Sprintf("%dh ago", h)
	}
	return fmt.Sprintf("%dd ago", h/24)
}

func clampPercent(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
