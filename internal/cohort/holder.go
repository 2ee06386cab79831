package cohort

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Holder publishes snapshots to concurrent readers. Swaps are atomic:
// in-flight queries keep the snapshot they started with, new queries see
// the latest one.
type Holder struct {
	current atomic.Pointer[Snapshot]
	logger  *slog.Logger
}

// NewHolder creates an empty holder. Current returns nil until the first
// Publish.
func NewHolder(logger *slog.Logger) *Holder {
	return &Holder{logger: logger.With(slog.String("component", "cohort_holder"))}
}

// Current returns the latest published snapshot, or nil before the first
// publish.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Publish makes s the snapshot served to new queries.
func (h *Holder) Publish(s *Snapshot) {
	start := time.Now()
	old := h.current.Swap(s)

	replaced := 0
	if old != nil {
		replaced = old.Len()
	}
	h.logger.Info("snapshot published",
		slog.Int("records", s.Len()),
		slog.Int("replaced_records", replaced),
		slog.Duration("swap_time", time.Since(start)))
}
