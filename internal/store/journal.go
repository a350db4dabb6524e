package store

import (
	"context"
	"log/slog"

	"github.com/roach88/mirror/internal/engine"
)

// Journal records relay events into a Store. It implements
// engine.Observer; write failures are logged, never returned, so a full
// disk cannot stop relaying.
type Journal struct {
	store  *Store
	logger *slog.Logger
}

// NewJournal creates a journal observer writing to s.
func NewJournal(s *Store, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{store: s, logger: logger}
}

// Observe implements engine.Observer.
func (j *Journal) Observe(ev engine.RelayEvent) {
	if err := j.store.WriteEvent(context.Background(), ev); err != nil {
		j.logger.Error("journal write failed",
			"node", ev.Node,
			"envelope", ev.Envelope.ID,
			"outcome", ev.Outcome,
			"error", err,
		)
	}
}

var _ engine.Observer = (*Journal)(nil)
