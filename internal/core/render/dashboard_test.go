package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"statusboard/internal/core/domain"
)

var renderNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

const sampleDocument = `{
  "agent": {
    "name": "Bob",
    "status": "online",
    "emoji": "🦉",
    "lastHeartbeat": "2026-03-04T11:58:00Z",
    "briefing": "Quiet night",
    "currentTask": "Rotating logs",
    "mood": "calm",
    "todayStats": {"tasksCompleted": 1234, "alertsSent": 2, "costEstimate": 0.4}
  },
  "proxmox": {
    "containers": [{"vmid": 101, "name": "web", "status": "running"}],
    "host": {"memUsed": 2048, "memTotal": 8192, "diskUsed": "40G", "diskTotal": "100G", "diskPercent": "40%"}
  },
  "docker": [{"name": "db", "image": "postgres:16", "status": "Up 3 hours"}],
  "coolify": [{"name": "site", "status": "running:healthy", "fqdn": "https://example.org"}],
  "monitors": [{"name": "api", "status": "down"}],
  "git": {"recentActivity": [{"repo": "infra", "event": "push", "time": "2026-03-04T11:00:00Z"}]},
  "actions": [{"type": "alert", "summary": "Disk high", "time": "2026-03-04T11:55:00Z"}],
  "files": {"personality": {"SOUL.md": "# Soul\n- kind"}, "memory": {"today.md": "**busy**"}},
  "recentFiles": [{"path": "notes.md", "op": "edit", "time": "2026-03-04T11:59:30Z"}],
  "local": {"load": "0.42", "diskPercent": 61, "memAvailMB": 3000, "uptime": "3 days"}
}`

func mustSnapshot(t *testing.T, raw string) *domain.Snapshot {
	t.Helper()
	snap, err := domain.ParseSnapshot([]byte(raw))
	require.NoError(t, err)
	return snap
}

func renderDoc(t *testing.T, v View) (string, *html.Node) {
	t.Helper()
	out, err := Dashboard(v)
	require.NoError(t, err)
	doc, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)
	return out, doc
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func byClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool { return hasClass(n, class) }
}

func byTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func cardTitles(doc *html.Node) []string {
	var titles []string
	for _, n := range findAll(doc, byClass("card-title")) {
		titles = append(titles, textOf(n))
	}
	return titles
}

func TestDashboardWaiting(t *testing.T) {
	out, doc := renderDoc(t, View{Now: renderNow, Note: "Agent offline: status file not found"})

	assert.Contains(t, out, "Waiting for first heartbeat...")
	assert.Empty(t, findAll(doc, byClass("card")))
	notes := findAll(doc, byClass("waiting-note"))
	require.Len(t, notes, 1)
	assert.Equal(t, "Agent offline: status file not found", textOf(notes[0]))

	titles := findAll(doc, byTag("title"))
	require.Len(t, titles, 1)
	assert.Equal(t, "Agent Dashboard", textOf(titles[0]))
}

func TestDashboardFullSnapshot(t *testing.T) {
	_, doc := renderDoc(t, View{
		Title:      "Ops",
		Snapshot:   mustSnapshot(t, sampleDocument),
		ReceivedAt: renderNow.Add(-time.Minute),
		Now:        renderNow,
	})

	header := findAll(doc, byClass("header-name"))
	require.Len(t, header, 1)
	assert.Equal(t, "🦉 Bob", textOf(header[0]))

	badge := findAll(doc, byClass("status-badge"))
	require.Len(t, badge, 1)
	assert.Equal(t, "online", textOf(badge[0]))

	hb := findAll(doc, byClass("heartbeat-time"))
	require.Len(t, hb, 1)
	assert.Equal(t, "Last heartbeat: 2m ago", textOf(hb[0]))

	assert.Empty(t, findAll(doc, byClass("stale-banner")))
	assert.Len(t, findAll(doc, byClass("briefing")), 1)
	assert.Len(t, findAll(doc, byClass("current-task")), 1)

	assert.Equal(t, []string{
		"Today",
		"Activity", "Git", "Recent Files",
		"Proxmox (1 CTs)", "Docker (1 containers)", "Coolify (1 apps)", "Monitors (1)",
		"Host Resources", "Local Host",
		"Personality", "Memory",
	}, cardTitles(doc))

	tabs := findAll(doc, byClass("tab-input"))
	require.Len(t, tabs, 3)
	_, firstChecked := attr(tabs[0], "checked")
	assert.True(t, firstChecked)
	_, secondChecked := attr(tabs[1], "checked")
	assert.False(t, secondChecked)
}

func TestDashboardSummaryStats(t *testing.T) {
	_, doc := renderDoc(t, View{Snapshot: mustSnapshot(t, sampleDocument), ReceivedAt: renderNow, Now: renderNow})

	var rows []string
	for _, n := range findAll(doc, byClass("stat-row")) {
		rows = append(rows, textOf(n))
	}
	assert.Equal(t, []string{"Tasks completed1,234", "Alerts sent2", "Cost estimate$0.40"}, rows)
}

func TestDashboardResources(t *testing.T) {
	out, doc := renderDoc(t, View{Snapshot: mustSnapshot(t, sampleDocument), ReceivedAt: renderNow, Now: renderNow})

	assert.Contains(t, out, "2G / 8G (25%)")
	assert.Contains(t, out, "40G / 100G (40%)")

	fills := findAll(doc, byClass("progress-fill"))
	require.Len(t, fills, 3)
	style, _ := attr(fills[0], "style")
	assert.Equal(t, "width:25%;background:"+colorGreen, style)
}

func TestDashboardDockerStatus(t *testing.T) {
	snap := mustSnapshot(t, `{"agent":{"name":"a"},"docker":[
		{"name":"web","image":"nginx","status":"Up 2 days"},
		{"name":"job","image":"busybox","status":"Exited (0) 1 hour ago"}]}`)
	_, doc := renderDoc(t, View{Snapshot: snap, ReceivedAt: renderNow, Now: renderNow})

	items := findAll(doc, byClass("dot-item"))
	require.Len(t, items, 2)

	dots := findAll(items[0], byClass("dot"))
	require.Len(t, dots, 1)
	style, _ := attr(dots[0], "style")
	assert.Equal(t, "background:"+colorGreen, style)

	dots = findAll(items[1], byClass("dot"))
	require.Len(t, dots, 1)
	style, _ = attr(dots[0], "style")
	assert.Equal(t, "background:"+colorRed, style)

	title, _ := attr(items[0], "title")
	assert.Equal(t, "nginx · Up 2 days", title)
}

func TestDashboardOmitsEmptySections(t *testing.T) {
	_, doc := renderDoc(t, View{
		Snapshot:   mustSnapshot(t, `{"agent":{"name":"Solo","status":"idle"},"docker":[],"files":{}}`),
		ReceivedAt: renderNow,
		Now:        renderNow,
	})

	for _, title := range cardTitles(doc) {
		assert.NotContains(t, title, "Docker")
	}
	assert.Empty(t, findAll(doc, byClass("card")))
	assert.Empty(t, findAll(doc, byClass("tab-input")))
}

func TestDashboardDefaultsWithoutAgent(t *testing.T) {
	_, doc := renderDoc(t, View{
		Snapshot:   mustSnapshot(t, `{"monitors":[{"name":"api","status":"up"}]}`),
		ReceivedAt: renderNow.Add(-30 * time.Second),
		Now:        renderNow,
	})

	header := findAll(doc, byClass("header-name"))
	require.Len(t, header, 1)
	assert.Equal(t, "🤖 Agent", textOf(header[0]))
	assert.Equal(t, "unknown", textOf(findAll(doc, byClass("status-badge"))[0]))
	assert.Equal(t, "Last heartbeat: 30s ago", textOf(findAll(doc, byClass("heartbeat-time"))[0]))
}

func TestDashboardStaleBanner(t *testing.T) {
	_, doc := renderDoc(t, View{
		Snapshot:   mustSnapshot(t, `{"agent":{"name":"Bob"}}`),
		ReceivedAt: renderNow.Add(-11 * time.Minute),
		Stale:      true,
		Now:        renderNow,
	})

	banner := findAll(doc, byClass("stale-banner"))
	require.Len(t, banner, 1)
	assert.Equal(t, "⚠ Stale: last update 11m ago", textOf(banner[0]))
}

func TestDashboardEscapesAgentText(t *testing.T) {
	out, doc := renderDoc(t, View{
		Snapshot: mustSnapshot(t, `{"agent":{"name":"<script>alert(1)</script>","briefing":"<img src=x onerror=alert(1)>"},
			"files":{"memory":{"evil.md":"<script>steal()</script>"}}}`),
		ReceivedAt: renderNow,
		Now:        renderNow,
	})

	assert.Empty(t, findAll(doc, byTag("script")))
	assert.Empty(t, findAll(doc, byTag("img")))
	assert.NotContains(t, out, "<script>alert(1)")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")
}

func TestDashboardRendersFileMarkdown(t *testing.T) {
	_, doc := renderDoc(t, View{Snapshot: mustSnapshot(t, sampleDocument), ReceivedAt: renderNow, Now: renderNow})

	bodies := findAll(doc, byClass("markdown"))
	require.Len(t, bodies, 2)
	assert.Len(t, findAll(bodies[0], byTag("h1")), 1)
	assert.Len(t, findAll(bodies[0], byTag("li")), 1)
	assert.Len(t, findAll(bodies[1], byTag("strong")), 1)
}

func TestDashboardLiveUpdatesScript(t *testing.T) {
	snap := mustSnapshot(t, `{"agent":{"name":"Bob"}}`)

	_, doc := renderDoc(t, View{Snapshot: snap, ReceivedAt: renderNow, Now: renderNow, LiveUpdates: true})
	scripts := findAll(doc, byTag("script"))
	require.Len(t, scripts, 1)
	assert.Contains(t, textOf(scripts[0]), "status_update")

	_, doc = renderDoc(t, View{Snapshot: snap, ReceivedAt: renderNow, Now: renderNow})
	assert.Empty(t, findAll(doc, byTag("script")))
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
