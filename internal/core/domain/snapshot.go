package domain

import (
	"encoding/json"
	"errors"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// MaxSnapshotBytes is the largest status document accepted on ingest.
const MaxSnapshotBytes = 512 << 10

var (
	ErrInvalidDocument = errors.New("status document is not valid JSON")
	ErrNotObject       = errors.New("status document must be a JSON object")
)

// Snapshot is the interpreted view of a status document. Every section is
// optional; a section whose JSON shape does not fit is left empty.
type Snapshot struct {
	Agent       *Agent
	Proxmox     *Proxmox
	Docker      []DockerContainer
	Coolify     []CoolifyApp
	Monitors    []Monitor
	Git         *Git
	Actions     []Action
	Files       *Files
	RecentFiles []RecentFile
	Local       *LocalHost
}

type Agent struct {
	Name          Value       `json:"name"`
	Status        Value       `json:"status"`
	Emoji         Value       `json:"emoji"`
	LastHeartbeat Value       `json:"lastHeartbeat"`
	Briefing      Value       `json:"briefing"`
	CurrentTask   Value       `json:"currentTask"`
	MoodQuip      Value       `json:"moodQuip"`
	Mood          Value       `json:"mood"`
	TodayStats    *TodayStats `json:"-"`
}

func (a *Agent) UnmarshalJSON(b []byte) error {
	type fields Agent
	if err := json.Unmarshal(b, (*fields)(a)); err != nil {
		return err
	}
	a.TodayStats = decodeObject[TodayStats](gjson.ParseBytes(b).Get("todayStats"))
	return nil
}

type TodayStats struct {
	TasksCompleted Value `json:"tasksCompleted"`
	AlertsSent     Value `json:"alertsSent"`
	CostEstimate   Value `json:"costEstimate"`
}

type Proxmox struct {
	Containers []ProxmoxContainer `json:"-"`
	Host       *ProxmoxHost       `json:"-"`
}

func (p *Proxmox) UnmarshalJSON(b []byte) error {
	doc := gjson.ParseBytes(b)
	p.Containers = decodeList[ProxmoxContainer](doc.Get("containers"))
	p.Host = decodeObject[ProxmoxHost](doc.Get("host"))
	return nil
}

type ProxmoxContainer struct {
	VMID   Value `json:"vmid"`
	Name   Value `json:"name"`
	Status Value `json:"status"`
}

type ProxmoxHost struct {
	MemUsed     Value `json:"memUsed"`
	MemTotal    Value `json:"memTotal"`
	MemPercent  Value `json:"memPercent"`
	DiskUsed    Value `json:"diskUsed"`
	DiskTotal   Value `json:"diskTotal"`
	DiskPercent Value `json:"diskPercent"`
}

type DockerContainer struct {
	Name   Value `json:"name"`
	Image  Value `json:"image"`
	Status Value `json:"status"`
}

type CoolifyApp struct {
	Name   Value `json:"name"`
	Status Value `json:"status"`
	FQDN   Value `json:"fqdn"`
}

type Monitor struct {
	Name   Value `json:"name"`
	Status Value `json:"status"`
}

type Git struct {
	RecentActivity []GitEvent `json:"-"`
}

func (g *Git) UnmarshalJSON(b []byte) error {
	g.RecentActivity = decodeList[GitEvent](gjson.ParseBytes(b).Get("recentActivity"))
	return nil
}

type GitEvent struct {
	Repo  Value `json:"repo"`
	Event Value `json:"event"`
	Time  Value `json:"time"`
}

// Action is one entry of the agent's activity log.
type Action struct {
	Type    Value `json:"type"`
	Summary Value `json:"summary"`
	Detail  Value `json:"detail"`
	Time    Value `json:"time"`
}

// Files holds raw file excerpts keyed by file name.
type Files struct {
	Personality map[string]Value `json:"-"`
	Memory      map[string]Value `json:"-"`
	Config      map[string]Value `json:"-"`
}

func (f *Files) UnmarshalJSON(b []byte) error {
	doc := gjson.ParseBytes(b)
	f.Personality = decodeTextMap(doc.Get("personality"))
	f.Memory = decodeTextMap(doc.Get("memory"))
	f.Config = decodeTextMap(doc.Get("config"))
	return nil
}

// Empty reports whether no group carries any file.
func (f *Files) Empty() bool {
	return f == nil || len(f.Personality)+len(f.Memory)+len(f.Config) == 0
}

type RecentFile struct {
	Path Value `json:"path"`
	Op   Value `json:"op"`
	Time Value `json:"time"`
}

type LocalHost struct {
	Load        Value `json:"load"`
	DiskPercent Value `json:"diskPercent"`
	MemAvailMB  Value `json:"memAvailMB"`
	Uptime      Value `json:"uptime"`
}

// Received is a stored snapshot together with the verbatim bytes the agent
// sent and the time the service accepted them.
type Received struct {
	Raw        []byte
	Snapshot   *Snapshot
	ReceivedAt time.Time
}

// StatusEvent is the compact notification emitted for each accepted ingest.
type StatusEvent struct {
	Agent      string `json:"agent"`
	Status     string `json:"status"`
	ReceivedAt string `json:"receivedAt"`
}

// Event summarises r for live-update subscribers.
func (r *Received) Event() StatusEvent {
	ev := StatusEvent{Agent: r.Snapshot.AgentName(), Status: "unknown", ReceivedAt: FormatTime(r.ReceivedAt)}
	if r.Snapshot.Agent != nil {
		ev.Status = r.Snapshot.Agent.Status.Or("unknown")
	}
	return ev
}

// AgentName returns the reporting agent's name or "unknown".
func (s *Snapshot) AgentName() string {
	if s == nil || s.Agent == nil {
		return "unknown"
	}
	return s.Agent.Name.Or("unknown")
}

// ParseSnapshot validates raw as a JSON object and decodes each known section
// independently.
func ParseSnapshot(raw []byte) (*Snapshot, error) {
	if !utf8.Valid(raw) || !gjson.ValidBytes(raw) {
		return nil, ErrInvalidDocument
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, ErrNotObject
	}

	fields := topLevel(doc)
	return &Snapshot{
		Agent:       decodeObject[Agent](fields["agent"]),
		Proxmox:     decodeObject[Proxmox](fields["proxmox"]),
		Docker:      decodeList[DockerContainer](fields["docker"]),
		Coolify:     decodeList[CoolifyApp](fields["coolify"]),
		Monitors:    decodeList[Monitor](fields["monitors"]),
		Git:         decodeObject[Git](fields["git"]),
		Actions:     decodeList[Action](fields["actions"]),
		Files:       decodeObject[Files](fields["files"]),
		RecentFiles: decodeList[RecentFile](fields["recentFiles"]),
		Local:       decodeObject[LocalHost](fields["local"]),
	}, nil
}

// topLevel indexes the members of an object. A repeated key keeps its last
// value, as encoding/json does.
func topLevel(doc gjson.Result) map[string]gjson.Result {
	fields := make(map[string]gjson.Result)
	doc.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = value
		return true
	})
	return fields
}

// AgentDocument returns the raw agent sub-document when it is present and
// truthy.
func AgentDocument(raw []byte) ([]byte, bool) {
	r := topLevel(gjson.ParseBytes(raw))["agent"]
	switch r.Type {
	case gjson.Null, gjson.False:
		return nil, false
	case gjson.String:
		if r.Str == "" {
			return nil, false
		}
	case gjson.Number:
		if r.Num == 0 {
			return nil, false
		}
	}
	return []byte(r.Raw), true
}

// SortedNames returns the keys of m in lexical order.
func SortedNames(m map[string]Value) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decodeObject[T any](r gjson.Result) *T {
	if !r.IsObject() {
		return nil
	}
	v := new(T)
	if err := json.Unmarshal([]byte(r.Raw), v); err != nil {
		return nil
	}
	return v
}

func decodeList[T any](r gjson.Result) []T {
	if !r.IsArray() {
		return nil
	}
	var out []T
	r.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		var v T
		if err := json.Unmarshal([]byte(item.Raw), &v); err == nil {
			out = append(out, v)
		}
		return true
	})
	return out
}

func decodeTextMap(r gjson.Result) map[string]Value {
	if !r.IsObject() {
		return nil
	}
	out := make(map[string]Value)
	r.ForEach(func(key, item gjson.Result) bool {
		var v Value
		if err := v.UnmarshalJSON([]byte(item.Raw)); err == nil && v.IsSet() {
			out[key.String()] = v
		}
		return true
	})
	return out
}
