package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"statusboard/internal/core/domain"
	"statusboard/internal/core/ports"
)

// Source reads the status document from disk on every call. The agent is
// expected to rewrite the file in place; the modification time stands in for
// the receipt time.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Latest(ctx context.Context) (*domain.Received, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ports.OfflineError{Reason: "status file not found"}
		}
		return nil, fmt.Errorf("stat status file: %w", err)
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ports.OfflineError{Reason: "status file not found"}
		}
		return nil, fmt.Errorf("read status file: %w", err)
	}

	snap, err := domain.ParseSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("parse status file: %w", err)
	}

	return &domain.Received{Raw: raw, Snapshot: snap, ReceivedAt: info.ModTime()}, nil
}
