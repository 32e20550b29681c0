package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"statusboard/internal/core/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html.tmpl"))

// View is everything the dashboard needs. A nil Snapshot renders the waiting
// placeholder.
type View struct {
	Title      string
	Snapshot   *domain.Snapshot
	ReceivedAt time.Time
	Stale      bool
	Now        time.Time
	// Note is shown under the waiting placeholder, e.g. why a source is offline.
	Note string
	// LiveUpdates adds the websocket reload hook to the page.
	LiveUpdates bool
}

// Dashboard renders the full HTML document for v.
func Dashboard(v View) (string, error) {
	var b strings.Builder
	if err := Write(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Write renders the full HTML document for v to w.
func Write(w io.Writer, v View) error {
	if err := pageTemplate.Execute(w, buildPage(v)); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

type page struct {
	Title       string
	LiveUpdates bool
	Waiting     bool
	Note        string

	Header      header
	Stale       bool
	StaleAgo    string
	Briefing    string
	CurrentTask string
	Summary     *summary
	Tabs        []tab
}

type header struct {
	Emoji     string
	Name      string
	Status    string
	Dot       template.CSS
	Heartbeat string
}

type summary struct {
	Mood     string
	MoodQuip string
	Stats    []stat
}

type stat struct {
	Label string
	Value string
}

type tab struct {
	ID       string
	Label    string
	Activity *activityTab
	System   *systemTab
	Files    *filesTab
}

type activityTab struct {
	Actions     []feedItem
	Git         []gitItem
	RecentFiles []fileTouch
}

type feedItem struct {
	Glyph   string
	Type    string
	Summary string
	Detail  string
	Ago     string
}

type gitItem struct {
	Repo  string
	Event string
	Ago   string
}

type fileTouch struct {
	Path string
	Op   string
	Ago  string
}

type systemTab struct {
	DotCards      []dotCard
	ResourceCards []resourceCard
}

type dotCard struct {
	Title string
	Items []dotItem
}

type dotItem struct {
	Name    string
	Tooltip string
	Dot     template.CSS
}

type resourceCard struct {
	Title string
	Rows  []resourceRow
}

type resourceRow struct {
	Label string
	Value string
	Bar   bool
	Fill  template.CSS
}

type filesTab struct {
	Groups []fileGroup
}

type fileGroup struct {
	Label string
	Files []fileDoc
}

type fileDoc struct {
	Name string
	Body template.HTML
}

func buildPage(v View) page {
	p := page{Title: v.Title, LiveUpdates: v.LiveUpdates}
	if p.Title == "" {
		p.Title = "Agent Dashboard"
	}
	if v.Snapshot == nil {
		p.Waiting = true
		p.Note = v.Note
		return p
	}

	d := v.Snapshot
	a := d.Agent
	if a == nil {
		a = &domain.Agent{}
	}

	heartbeat := v.ReceivedAt
	if t, ok := a.LastHeartbeat.Time(); ok {
		heartbeat = t
	}
	p.Header = header{
		Emoji:     a.Emoji.Or("🤖"),
		Name:      a.Name.Or("Agent"),
		Status:    a.Status.Or("unknown"),
		Dot:       dotStyle(StatusColor(a.Status.String())),
		Heartbeat: TimeAgo(heartbeat, v.Now),
	}
	if v.Stale {
		p.Stale = true
		p.StaleAgo = TimeAgo(v.ReceivedAt, v.Now)
	}
	p.Briefing = a.Briefing.String()
	p.CurrentTask = a.CurrentTask.String()
	p.Summary = buildSummary(a)

	if act := buildActivity(d, v.Now); act != nil {
		p.Tabs = append(p.Tabs, tab{ID: "activity", Label: "Activity", Activity: act})
	}
	if sys := buildSystem(d); sys != nil {
		p.Tabs = append(p.Tabs, tab{ID: "system", Label: "System", System: sys})
	}
	if files := buildFiles(d.Files); files != nil {
		p.Tabs = append(p.Tabs, tab{ID: "files", Label: "Files", Files: files})
	}
	return p
}

func buildSummary(a *domain.Agent) *summary {
	s := &summary{
		Mood:     a.Mood.String(),
		MoodQuip: a.MoodQuip.String(),
	}
	if st := a.TodayStats; st != nil {
		if st.TasksCompleted.IsSet() {
			s.Stats = append(s.Stats, stat{Label: "Tasks completed", Value: count(st.TasksCompleted)})
		}
		if st.AlertsSent.IsSet() {
			s.Stats = append(s.Stats, stat{Label: "Alerts sent", Value: count(st.AlertsSent)})
		}
		if st.CostEstimate.IsSet() {
			s.Stats = append(s.Stats, stat{Label: "Cost estimate", Value: cost(st.CostEstimate)})
		}
	}
	if s.Mood == "" && s.MoodQuip == "" && len(s.Stats) == 0 {
		return nil
	}
	return s
}

func buildActivity(d *domain.Snapshot, now time.Time) *activityTab {
	t := &activityTab{}
	for _, act := range d.Actions {
		t.Actions = append(t.Actions, feedItem{
			Glyph:   ActionGlyph(act.Type.String()),
			Type:    act.Type.Or("-"),
			Summary: act.Summary.Or("-"),
			Detail:  act.Detail.String(),
			Ago:     timeAgoValue(act.Time, now),
		})
	}
	if d.Git != nil {
		for _, ev := range d.Git.RecentActivity {
			t.Git = append(t.Git, gitItem{
				Repo:  ev.Repo.Or("?"),
				Event: ev.Event.Or("-"),
				Ago:   timeAgoValue(ev.Time, now),
			})
		}
	}
	for _, f := range d.RecentFiles {
		t.RecentFiles = append(t.RecentFiles, fileTouch{
			Path: f.Path.Or("?"),
			Op:   f.Op.Or("-"),
			Ago:  timeAgoValue(f.Time, now),
		})
	}
	if len(t.Actions)+len(t.Git)+len(t.RecentFiles) == 0 {
		return nil
	}
	return t
}

func buildSystem(d *domain.Snapshot) *systemTab {
	t := &systemTab{}

	if d.Proxmox != nil && len(d.Proxmox.Containers) > 0 {
		card := dotCard{Title: fmt.Sprintf("Proxmox (%d CTs)", len(d.Proxmox.Containers))}
		for _, c := range d.Proxmox.Containers {
			card.Items = append(card.Items, dotItem{
				Name:    c.Name.Or("?"),
				Tooltip: "CT " + c.VMID.Or("?"),
				Dot:     dotStyle(StatusColor(c.Status.String())),
			})
		}
		t.DotCards = append(t.DotCards, card)
	}

	if len(d.Docker) > 0 {
		card := dotCard{Title: fmt.Sprintf("Docker (%d containers)", len(d.Docker))}
		for _, c := range d.Docker {
			status := "down"
			if strings.Contains(strings.ToLower(c.Status.String()), "up") {
				status = "running"
			}
			card.Items = append(card.Items, dotItem{
				Name:    c.Name.Or("?"),
				Tooltip: c.Image.Or("?") + " · " + c.Status.Or("unknown"),
				Dot:     dotStyle(StatusColor(status)),
			})
		}
		t.DotCards = append(t.DotCards, card)
	}

	if len(d.Coolify) > 0 {
		card := dotCard{Title: fmt.Sprintf("Coolify (%d apps)", len(d.Coolify))}
		for _, c := range d.Coolify {
			// Coolify reports "running:healthy"; the part before the colon is the state.
			state, _, _ := strings.Cut(c.Status.String(), ":")
			card.Items = append(card.Items, dotItem{
				Name:    c.Name.Or("?"),
				Tooltip: c.FQDN.Or("-"),
				Dot:     dotStyle(StatusColor(state)),
			})
		}
		t.DotCards = append(t.DotCards, card)
	}

	if len(d.Monitors) > 0 {
		card := dotCard{Title: fmt.Sprintf("Monitors (%d)", len(d.Monitors))}
		for _, m := range d.Monitors {
			card.Items = append(card.Items, dotItem{
				Name:    m.Name.Or("?"),
				Tooltip: m.Status.Or("unknown"),
				Dot:     dotStyle(StatusColor(m.Status.String())),
			})
		}
		t.DotCards = append(t.DotCards, card)
	}

	if d.Proxmox != nil && d.Proxmox.Host != nil {
		t.ResourceCards = append(t.ResourceCards, hostCard(d.Proxmox.Host))
	}
	if d.Local != nil {
		t.ResourceCards = append(t.ResourceCards, localCard(d.Local))
	}

	if len(t.DotCards)+len(t.ResourceCards) == 0 {
		return nil
	}
	return t
}

func hostCard(h *domain.ProxmoxHost) resourceCard {
	memPct := 0
	switch {
	case h.MemPercent.Truthy():
		memPct, _ = h.MemPercent.Int()
	case h.MemTotal.Truthy():
		used, _ := h.MemUsed.Float()
		if total, ok := h.MemTotal.Float(); ok && total > 0 {
			memPct = int(math.Round(used / total * 100))
		}
	}
	diskPct := 0
	if h.DiskPercent.Truthy() {
		diskPct, _ = h.DiskPercent.Int()
	}

	return resourceCard{
		Title: "Host Resources",
		Rows: []resourceRow{
			{
				Label: "Memory",
				Value: fmt.Sprintf("%s / %s (%d%%)", gigabytes(h.MemUsed), gigabytes(h.MemTotal), memPct),
				Bar:   true,
				Fill:  fillStyle(memPct),
			},
			{
				Label: "Disk",
				Value: fmt.Sprintf("%s / %s (%s)", h.DiskUsed.Or("?"), h.DiskTotal.Or("?"), h.DiskPercent.Or("?")),
				Bar:   true,
				Fill:  fillStyle(diskPct),
			},
		},
	}
}

func localCard(l *domain.LocalHost) resourceCard {
	diskPct := 0
	if l.DiskPercent.Truthy() {
		diskPct, _ = l.DiskPercent.Int()
	}
	memAvail := "?"
	if l.MemAvailMB.Truthy() {
		memAvail = count(l.MemAvailMB)
	}

	return resourceCard{
		Title: "Local Host",
		Rows: []resourceRow{
			{Label: "Load", Value: l.Load.Or("?")},
			{Label: "Disk", Value: l.DiskPercent.Or("?"), Bar: true, Fill: fillStyle(diskPct)},
			{Label: "Memory Available", Value: memAvail + " MB"},
			{Label: "Uptime", Value: l.Uptime.Or("?")},
		},
	}
}

var fileGroupLabels = []struct {
	label string
	pick  func(*domain.Files) map[string]domain.Value
}{
	{"Personality", func(f *domain.Files) map[string]domain.Value { return f.Personality }},
	{"Memory", func(f *domain.Files) map[string]domain.Value { return f.Memory }},
	{"Config", func(f *domain.Files) map[string]domain.Value { return f.Config }},
}

func buildFiles(f *domain.Files) *filesTab {
	if f.Empty() {
		return nil
	}
	t := &filesTab{}
	for _, g := range fileGroupLabels {
		m := g.pick(f)
		if len(m) == 0 {
			continue
		}
		group := fileGroup{Label: g.label}
		for _, name := range domain.SortedNames(m) {
			group.Files = append(group.Files, fileDoc{Name: name, Body: Markdown(m[name].String())})
		}
		t.Groups = append(t.Groups, group)
	}
	return t
}

func timeAgoValue(v domain.Value, now time.Time) string {
	t, ok := v.Time()
	if !ok {
		return "never"
	}
	return TimeAgo(t, now)
}

// gigabytes renders a megabyte count as whole gigabytes.
func gigabytes(mb domain.Value) string {
	if !mb.Truthy() {
		return "?"
	}
	f, ok := mb.Float()
	if !ok {
		return "?"
	}
	return fmt.Sprintf("%dG", int64(math.Round(f/1024)))
}

func count(v domain.Value) string {
	if f, ok := v.Float(); ok && f == math.Trunc(f) {
		return humanize.Comma(int64(f))
	}
	return v.Or("?")
}

func cost(v domain.Value) string {
	if f, ok := v.Float(); ok {
		return fmt.Sprintf("$%.2f", f)
	}
	return v.Or("?")
}

func dotStyle(color string) template.CSS {
	return template.CSS("background:" + color)
}

func fillStyle(pct int) template.CSS {
	return template.CSS(fmt.Sprintf("width:%d%%;background:%s", clampPercent(pct), GaugeColor(pct)))
}
