package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"statusboard/internal/core/domain"
	"statusboard/internal/core/logger"
)

const statusPath = "/api/status"

type Config struct {
	// ServerURL is the statusboard base URL, e.g. http://localhost:3000.
	ServerURL string
	Token     string
	// BaseFile holds the snapshot document the agent decorates on each push.
	// Empty means start from an empty object.
	BaseFile string
	Name     string
	Interval time.Duration
}

// Agent periodically pushes a status snapshot to a statusboard server.
type Agent struct {
	cfg      Config
	endpoint string
	http     *http.Client
	docker   *DockerCollector
	now      func() time.Time
}

func New(cfg Config, docker *DockerCollector) *Agent {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Agent{
		cfg:      cfg,
		endpoint: strings.TrimRight(cfg.ServerURL, "/") + statusPath,
		http:     &http.Client{Timeout: 15 * time.Second},
		docker:   docker,
		now:      time.Now,
	}
}

// Run pushes once immediately and then on every interval until ctx ends.
// Push failures are logged and retried on the next tick.
func (a *Agent) Run(ctx context.Context) error {
	logger.Info("Agent started", "endpoint", a.endpoint, "interval", a.cfg.Interval)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := a.PushOnce(ctx); err != nil {
			logger.Error("Push failed", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("Agent stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// PushOnce builds a snapshot and posts it.
func (a *Agent) PushOnce(ctx context.Context) error {
	doc, err := a.Snapshot(ctx)
	if err != nil {
		return err
	}
	return a.post(ctx, doc)
}

// Snapshot loads the base document and fills in the heartbeat, default agent
// fields and, when a collector is configured, the docker section.
func (a *Agent) Snapshot(ctx context.Context) ([]byte, error) {
	doc := []byte("{}")
	if a.cfg.BaseFile != "" {
		raw, err := os.ReadFile(a.cfg.BaseFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read base snapshot: %w", err)
		}
		doc = raw
	}
	if !gjson.ValidBytes(doc) || !gjson.ParseBytes(doc).IsObject() {
		return nil, fmt.Errorf("base snapshot %s: %w", a.cfg.BaseFile, domain.ErrNotObject)
	}

	var err error
	set := func(path string, value any) {
		if err == nil {
			doc, err = sjson.SetBytes(doc, path, value)
		}
	}

	set("agent.lastHeartbeat", domain.FormatTime(a.now()))
	if !gjson.GetBytes(doc, "agent.name").Exists() {
		set("agent.name", a.name())
	}
	if !gjson.GetBytes(doc, "agent.status").Exists() {
		set("agent.status", "online")
	}

	if a.docker != nil {
		containers, cerr := a.docker.Collect(ctx)
		if cerr != nil {
			logger.Warn("Docker unavailable, keeping base docker section", "error", cerr)
		} else {
			set("docker", containers)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}
	return doc, nil
}

func (a *Agent) name() string {
	if a.cfg.Name != "" {
		return a.cfg.Name
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "Agent"
}

func (a *Agent) post(ctx context.Context, doc []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(doc))
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if a.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.Token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push status: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	logger.Debug("Status pushed", "request_id", requestID, "bytes", len(doc), "received_at", gjson.GetBytes(body, "receivedAt").String())
	return nil
}
