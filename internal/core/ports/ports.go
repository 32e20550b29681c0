package ports

import (
	"context"
	"errors"

	"statusboard/internal/core/domain"
)

// ErrSourceOffline marks a source that has nothing to report right now, as
// opposed to one that failed.
var ErrSourceOffline = errors.New("status source offline")

// OfflineError carries the reason a source is offline and matches
// ErrSourceOffline.
type OfflineError struct {
	Reason string
}

func (e *OfflineError) Error() string { return e.Reason }

func (e *OfflineError) Is(target error) bool { return target == ErrSourceOffline }

// SnapshotSource yields the latest snapshot. A nil result with a nil error
// means nothing has been received yet.
type SnapshotSource interface {
	Latest(ctx context.Context) (*domain.Received, error)
}

// SnapshotStore is a source that ingest can write to.
type SnapshotStore interface {
	SnapshotSource
	Replace(rec *domain.Received)
}

// Relay pushes the agent sub-document to a downstream collector.
type Relay interface {
	Forward(ctx context.Context, agent []byte) error
}

// StatusNotifier is told about every accepted ingest.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, ev domain.StatusEvent) error
}
