package services

import (
	"context"
	"errors"
	"time"

	"statusboard/internal/core/domain"
	"statusboard/internal/core/ports"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Probe is the liveness answer for orchestration layers.
type Probe struct {
	OK         bool    `json:"ok"`
	HasData    bool    `json:"hasData"`
	ReceivedAt *string `json:"receivedAt"`
}

// HealthReport is the detailed view served alongside the probe.
type HealthReport struct {
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version"`
	CheckedAt  time.Time    `json:"checked_at"`
	Source     string       `json:"source"`
	HasData    bool         `json:"has_data"`
	Stale      bool         `json:"stale"`
	AgeSeconds *int64       `json:"age_seconds,omitempty"`
	Message    string       `json:"message,omitempty"`
}

type HealthService struct {
	source  ports.SnapshotSource
	kind    string
	version string
	now     func() time.Time
}

func NewHealthService(source ports.SnapshotSource, kind, version string) *HealthService {
	if version == "" {
		version = "0.0.1"
	}
	return &HealthService{
		source:  source,
		kind:    kind,
		version: version,
		now:     time.Now,
	}
}

// Probe never fails: a source error just means there is no data to report.
func (s *HealthService) Probe(ctx context.Context) Probe {
	p := Probe{OK: true}
	rec, err := s.source.Latest(ctx)
	if err != nil || rec == nil {
		return p
	}
	at := domain.FormatTime(rec.ReceivedAt)
	p.HasData = true
	p.ReceivedAt = &at
	return p
}

// CheckHealth reports degraded when the source errors or the snapshot is stale.
func (s *HealthService) CheckHealth(ctx context.Context) *HealthReport {
	now := s.now()
	report := &HealthReport{
		Status:    HealthStatusHealthy,
		Version:   s.version,
		CheckedAt: now,
		Source:    s.kind,
	}

	rec, err := s.source.Latest(ctx)
	switch {
	case errors.Is(err, ports.ErrSourceOffline):
		report.Message = err.Error()
	case err != nil:
		report.Status = HealthStatusDegraded
		report.Message = err.Error()
	case rec != nil:
		report.HasData = true
		age := int64(now.Sub(rec.ReceivedAt) / time.Second)
		report.AgeSeconds = &age
	}

	var receivedAt time.Time
	if rec != nil {
		receivedAt = rec.ReceivedAt
	}
	report.Stale = IsStale(receivedAt, now)
	if report.HasData && report.Stale {
		report.Status = HealthStatusDegraded
	}
	return report
}
