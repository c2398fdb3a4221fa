// Package usage records per-user OCR outcome counters and an append-only
// processing log. Recording is best effort; a failed write never fails
// the batch that produced it.
package usage

import (
	"context"
	"log/slog"

	"readinghub/internal/logging"
	"readinghub/internal/notes"
)

// Recorder persists OCR processing outcomes.
type Recorder interface {
	RecordSuccess(ctx context.Context, userID, noteID string, durationMS int64)
	RecordFailure(ctx context.Context, userID, noteID, message string, durationMS int64)
}

type usageStore interface {
	RecordUsage(ctx context.Context, entry notes.LogEntry) error
}

type storeRecorder struct {
	store  usageStore
	logger *slog.Logger
}

// NewRecorder returns a Recorder backed by the notes store.
func NewRecorder(store usageStore, logger *slog.Logger) Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &storeRecorder{store: store, logger: logger}
}

func (r *storeRecorder) RecordSuccess(ctx context.Context, userID, noteID string, durationMS int64) {
	r.record(ctx, notes.LogEntry{
		UserID:     userID,
		NoteID:     noteID,
		Status:     notes.StatusCompleted,
		DurationMS: durationMS,
	})
}

func (r *storeRecorder) RecordFailure(ctx context.Context, userID, noteID, message string, durationMS int64) {
	r.record(ctx, notes.LogEntry{
		UserID:       userID,
		NoteID:       noteID,
		Status:       notes.StatusFailed,
		ErrorMessage: message,
		DurationMS:   durationMS,
	})
}

func (r *storeRecorder) record(ctx context.Context, entry notes.LogEntry) {
	if err := r.store.RecordUsage(ctx, entry); err != nil {
		r.logger.Warn("failed to record ocr usage",
			logging.String(logging.FieldUserID, entry.UserID),
			logging.String(logging.FieldNoteID, entry.NoteID),
			logging.Error(err))
	}
}

type nopRecorder struct{}

// NewNop returns a Recorder that drops every entry.
func NewNop() Recorder { return nopRecorder{} }

func (nopRecorder) RecordSuccess(context.Context, string, string, int64)         {}
func (nopRecorder) RecordFailure(context.Context, string, string, string, int64) {}
