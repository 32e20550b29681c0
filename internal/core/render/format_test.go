package render

import (
	"testing"
	"time"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"future", now.Add(time.Minute), "just now"},
		{"now", now, "0s ago"},
		{"seconds", now.Add(-59 * time.Second), "59s ago"},
		{"minute boundary", now.Add(-60 * time.Second), "1m ago"},
		{"minutes", now.Add(-9*time.Minute - 59*time.Second), "9m ago"},
		{"hours", now.Add(-3*time.Hour - 20*time.Minute), "3h ago"},
		{"days", now.Add(-50 * time.Hour), "2d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeAgo(tt.ts, now); got != tt.want {
				t.Errorf("TimeAgo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"online", colorGreen},
		{"Running", colorGreen},
		{"UP", colorGreen},
		{"idle", colorAmber},
		{"working", colorBlue},
		{"stopped", colorRed},
		{"", colorNeutral},
		{"mystery", colorNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := StatusColor(tt.status); got != tt.want {
				t.Errorf("StatusColor(%q) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestGaugeColor(t *testing.T) {
	tests := []struct {
		pct  int
		want string
	}{
		{0, colorGreen},
		{70, colorGreen},
		{71, colorAmber},
		{90, colorAmber},
		{91, colorRed},
		{150, colorRed},
	}

	for _, tt := range tests {
		if got := GaugeColor(tt.pct); got != tt.want {
			t.Errorf("GaugeColor(%d) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestActionGlyph(t *testing.T) {
	if got := ActionGlyph("Deploy"); got != "🚀" {
		t.Errorf("ActionGlyph(Deploy) = %q", got)
	}
	if got := ActionGlyph("unheard-of"); got != "•" {
		t.Errorf("ActionGlyph(unheard-of) = %q", got)
	}
}

func TestFillStyleClamps(t *testing.T) {
	if got := string(fillStyle(140)); got != "width:100%;background:"+colorRed {
		t.Errorf("fillStyle(140) = %q", got)
	}
	if got := string(fillStyle(-5)); got != "width:0%;background:"+colorGreen {
		t.Errorf("fillStyle(-5) = %q", got)
	}
}
