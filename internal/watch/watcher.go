// Package watch polls transcription statuses until every watched note
// reaches a terminal state.
package watch

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"readinghub/internal/logging"
	"readinghub/internal/notes"
)

const defaultInterval = 3 * time.Second

// StatusSource reports the current transcription status per note.
type StatusSource interface {
	TranscriptionStatuses(ctx context.Context, noteIDs []string) (map[string]notes.OCRStatus, error)
}

// Watcher polls a StatusSource for a fixed set of notes.
type Watcher struct {
	source   StatusSource
	noteIDs  []string
	interval time.Duration
	logger   *slog.Logger
	onUpdate func(map[string]notes.OCRStatus)

	statuses map[string]notes.OCRStatus
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithInterval overrides the polling cadence.
func WithInterval(interval time.Duration) Option {
	return func(w *Watcher) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithOnUpdate registers a callback invoked after each poll with a copy
// of the current statuses. Runs on the watcher goroutine.
func WithOnUpdate(fn func(map[string]notes.OCRStatus)) Option {
	return func(w *Watcher) {
		w.onUpdate = fn
	}
}

// NewWatcher builds a watcher over the given note ids.
func NewWatcher(source StatusSource, noteIDs []string, logger *slog.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &Watcher{
		source:   source,
		noteIDs:  append([]string(nil), noteIDs...),
		interval: defaultInterval,
		logger:   logger.With(logging.String(logging.FieldComponent, "watch")),
		statuses: make(map[string]notes.OCRStatus, len(noteIDs)),
	}
	for _, id := range w.noteIDs {
		w.statuses[id] = notes.StatusPending
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until every note is terminal or the context is done. It polls
// once immediately, then on each tick. The returned error is nil when all
// notes settled and ctx.Err() when cancelled first.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.noteIDs) == 0 {
		return nil
	}
	if err := w.poll(ctx); err != nil {
		return err
	}
	if w.settled() {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				return err
			}
			if w.settled() {
				return nil
			}
		}
	}
}

// Snapshot returns a copy of the last observed statuses.
func (w *Watcher) Snapshot() map[string]notes.OCRStatus {
	return maps.Clone(w.statuses)
}

func (w *Watcher) poll(ctx context.Context) error {
	open := w.openIDs()
	if len(open) == 0 {
		return nil
	}
	observed, err := w.source.TranscriptionStatuses(ctx, open)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Transient poll failures keep the last snapshot.
		w.logger.Warn("status poll failed", logging.Error(err))
		return nil
	}
	for id, status := range observed {
		w.statuses[id] = status
	}
	if w.onUpdate != nil {
		w.onUpdate(w.Snapshot())
	}
	return nil
}

// openIDs returns the ids still awaiting a terminal status. Settled notes
// are dropped from subsequent polls.
func (w *Watcher) openIDs() []string {
	open := make([]string, 0, len(w.noteIDs))
	for _, id := range w.noteIDs {
		if !w.statuses[id].IsTerminal() {
			open = append(open, id)
		}
	}
	return open
}

func (w *Watcher) settled() bool {
	for _, status := range w.statuses {
		if !status.IsTerminal() {
			return false
		}
	}
	return true
}
