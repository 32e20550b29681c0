package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"

	"statusboard/internal/core/domain"
	"statusboard/internal/core/logger"
	"statusboard/internal/core/ports"
	"statusboard/internal/core/render"
	"statusboard/internal/core/tracing"
)

// ErrIngestDisabled is returned when the service reads from a source that
// cannot be written to.
var ErrIngestDisabled = errors.New("ingest disabled for this source")

// ReceivedAtKey is the reserved key carrying the receipt time on raw reads.
const ReceivedAtKey = "_receivedAt"

// StatusService owns the ingest path and the read models built on top of the
// configured snapshot source.
type StatusService struct {
	source    ports.SnapshotSource
	store     ports.SnapshotStore
	relay     ports.Relay
	notifiers []ports.StatusNotifier
	title     string
	live      bool
	now       func() time.Time

	// background tracks detached relay and notification work.
	background sync.WaitGroup
}

type Option func(*StatusService)

// WithRelay forwards the agent sub-document of every ingest to r.
func WithRelay(r ports.Relay) Option {
	return func(s *StatusService) { s.relay = r }
}

// WithNotifiers registers subscribers told about every accepted ingest.
func WithNotifiers(n ...ports.StatusNotifier) Option {
	return func(s *StatusService) { s.notifiers = append(s.notifiers, n...) }
}

// WithTitle sets the dashboard page title.
func WithTitle(title string) Option {
	return func(s *StatusService) { s.title = title }
}

// WithLiveUpdates makes the dashboard reload on websocket pushes.
func WithLiveUpdates(enabled bool) Option {
	return func(s *StatusService) { s.live = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *StatusService) { s.now = now }
}

// NewStatusService builds a service reading from source. When source is also
// a ports.SnapshotStore the service accepts ingests.
func NewStatusService(source ports.SnapshotSource, opts ...Option) *StatusService {
	s := &StatusService{source: source, now: time.Now}
	if store, ok := source.(ports.SnapshotStore); ok {
		s.store = store
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AcceptsIngest reports whether Ingest can succeed.
func (s *StatusService) AcceptsIngest() bool {
	return s.store != nil
}

// Ingest replaces the stored snapshot with raw. The relay forward and
// notifications are started in the background and never awaited here.
func (s *StatusService) Ingest(ctx context.Context, raw []byte) (*domain.Received, error) {
	if s.store == nil {
		return nil, ErrIngestDisabled
	}

	ctx, span := tracing.StartSpan(ctx, "status.ingest")
	defer span.End()

	snap, err := domain.ParseSnapshot(raw)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	rec := &domain.Received{Raw: raw, Snapshot: snap, ReceivedAt: s.now()}
	s.store.Replace(rec)

	agentName := snap.AgentName()
	span.SetAttributes(attribute.String("agent.name", agentName), attribute.Int("snapshot.bytes", len(raw)))
	logger.InfoContext(ctx, "Status received", "agent", agentName, "received_at", domain.FormatTime(rec.ReceivedAt))

	if s.relay != nil {
		if agentDoc, ok := domain.AgentDocument(raw); ok {
			s.detach(ctx, func(ctx context.Context) {
				if err := s.relay.Forward(ctx, agentDoc); err != nil {
					logger.ErrorContext(ctx, "Relay forward failed", "error", err)
				}
			})
		}
	}

	if len(s.notifiers) > 0 {
		ev := rec.Event()
		for _, n := range s.notifiers {
			s.detach(ctx, func(ctx context.Context) {
				if err := n.NotifyStatus(ctx, ev); err != nil {
					logger.WarnContext(ctx, "Status notification failed", "error", err)
				}
			})
		}
	}

	return rec, nil
}

// detach runs fn on a context that keeps ctx's values but not its
// cancellation, so a client hanging up does not abort the work.
func (s *StatusService) detach(ctx context.Context, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		fn(ctx)
	}()
}

// Wait blocks until detached work started so far has finished.
func (s *StatusService) Wait() {
	s.background.Wait()
}

type waitingStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type offlineStatus struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// RawStatus returns the stored document with the receipt time merged in under
// ReceivedAtKey, or a placeholder object when there is nothing to show.
func (s *StatusService) RawStatus(ctx context.Context) ([]byte, error) {
	rec, err := s.source.Latest(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrSourceOffline) {
			return json.Marshal(offlineStatus{Status: "offline", Error: err.Error()})
		}
		return nil, err
	}
	if rec == nil {
		return json.Marshal(waitingStatus{Status: "waiting", Message: "No data received yet"})
	}

	out := rec.Raw
	for gjson.GetBytes(out, ReceivedAtKey).Exists() {
		if out, err = sjson.DeleteBytes(out, ReceivedAtKey); err != nil {
			return nil, fmt.Errorf("drop client receipt time: %w", err)
		}
	}
	out, err = sjson.SetBytes(out, ReceivedAtKey, domain.FormatTime(rec.ReceivedAt))
	if err != nil {
		return nil, fmt.Errorf("merge receipt time: %w", err)
	}
	return out, nil
}

// Dashboard renders the HTML page for the current state.
func (s *StatusService) Dashboard(ctx context.Context) (string, error) {
	now := s.now()
	view := render.View{Title: s.title, Now: now, LiveUpdates: s.live}

	rec, err := s.source.Latest(ctx)
	switch {
	case errors.Is(err, ports.ErrSourceOffline):
		view.Note = "Agent offline: " + err.Error()
	case err != nil:
		return "", err
	case rec != nil:
		view.Snapshot = rec.Snapshot
		view.ReceivedAt = rec.ReceivedAt
	}
	view.Stale = IsStale(view.ReceivedAt, now)

	return render.Dashboard(view)
}
