package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// RecordingSynchronizer records every announced id.
type RecordingSynchronizer struct {
	mu     sync.Mutex
	ids    []string
	notify chan string
}

// NewRecordingSynchronizer creates a RecordingSynchronizer. Announcements
// are also sent on Updates, which buffers up to 64 ids.
func NewRecordingSynchronizer() *RecordingSynchronizer {
	return &RecordingSynchronizer{notify: make(chan string, 64)}
}

// NotifyUpdate records id.
func (s *RecordingSynchronizer) NotifyUpdate(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.ids = append(s.ids, id)
	s.mu.Unlock()

	select {
	case s.notify <- id:
	default:
	}
	return nil
}

// IDs returns the recorded ids in order.
func (s *RecordingSynchronizer) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Updates delivers announced ids as they happen.
func (s *RecordingSynchronizer) Updates() <-chan string {
	return s.notify
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
