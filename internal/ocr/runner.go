package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"readinghub/internal/config"
	"readinghub/internal/logging"
	"readinghub/internal/notes"
	"readinghub/internal/notifications"
	"readinghub/internal/services"
	"readinghub/internal/usage"
)

// Store is the slice of the notes store the runner needs.
type Store interface {
	SelectEligible(ctx context.Context, limit int) ([]*notes.Note, error)
	CountEligible(ctx context.Context) (int, error)
	ClaimTranscription(ctx context.Context, noteID string) (bool, error)
	CompleteTranscription(ctx context.Context, noteID, extractedText string) error
	FailTranscription(ctx context.Context, noteID, message string) error
	ResetFailed(ctx context.Context, noteIDs ...string) (int64, error)
}

// Extractor turns an image URL into extracted text.
type Extractor interface {
	ExtractText(ctx context.Context, imageURL string) (string, error)
}

// ItemOutcome reports how a single note fared within a batch.
type ItemOutcome struct {
	NoteID  string `json:"note_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Result summarizes one reconciliation batch.
type Result struct {
	TotalFound    int           `json:"total_found"`
	TotalEligible int           `json:"total_eligible"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	Items         []ItemOutcome `json:"items,omitempty"`
	Message       string        `json:"message"`
	Duration      time.Duration `json:"-"`
}

// Runner drives OCR reconciliation batches against the notes store.
type Runner struct {
	store         Store
	extractor     Extractor
	recorder      usage.Recorder
	notifier      notifications.Service
	logger        *slog.Logger
	defaultBatch  int
	maxConcurrent int
}

// NewRunner wires a Runner from its collaborators. Nil recorder, notifier,
// and logger degrade to no-ops.
func NewRunner(cfg *config.Config, store Store, extractor Extractor, recorder usage.Recorder, notifier notifications.Service, logger *slog.Logger) *Runner {
	if recorder == nil {
		recorder = usage.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	batch := cfg.OCR.BatchSize
	if batch <= 0 {
		batch = 10
	}
	concurrent := cfg.OCR.MaxConcurrent
	if concurrent <= 0 {
		concurrent = 4
	}
	return &Runner{
		store:         store,
		extractor:     extractor,
		recorder:      recorder,
		notifier:      notifier,
		logger:        logger.With(logging.String(logging.FieldComponent, "ocr-runner")),
		defaultBatch:  batch,
		maxConcurrent: concurrent,
	}
}

// CountPending reports how many notes currently need transcription.
func (r *Runner) CountPending(ctx context.Context) (int, error) {
	count, err := r.store.CountEligible(ctx)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "ocr", "count pending", "failed to count eligible notes", err)
	}
	return count, nil
}

// RunBatch selects up to maxItems eligible notes, claims each one, and
// extracts text for every claim it wins. A maxItems of zero or less uses
// the configured batch size.
func (r *Runner) RunBatch(ctx context.Context, maxItems int) (*Result, error) {
	if maxItems <= 0 {
		maxItems = r.defaultBatch
	}
	started := time.Now()

	selected, err := r.store.SelectEligible(ctx, maxItems)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ocr", "run batch", "failed to select eligible notes", err)
	}

	result := &Result{TotalFound: len(selected)}
	if len(selected) == 0 {
		result.Message = "no notes awaiting transcription"
		result.Duration = time.Since(started)
		return result, nil
	}

	if err := r.notifier.NotifyBatchStarted(ctx, len(selected)); err != nil {
		r.logger.Warn("batch start notification failed", logging.Error(err))
	}

	var mu sync.Mutex
	outcomes := make([]ItemOutcome, 0, len(selected))
	claimed := 0

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.maxConcurrent)
	for _, note := range selected {
		note := note
		group.Go(func() error {
			outcome, won := r.processNote(groupCtx, note)
			mu.Lock()
			if won {
				claimed++
				outcomes = append(outcomes, outcome)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].NoteID < outcomes[j].NoteID })
	result.Items = outcomes
	result.TotalEligible = claimed
	for _, outcome := range outcomes {
		if outcome.Status == string(notes.StatusCompleted) {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	result.Duration = time.Since(started)
	result.Message = fmt.Sprintf("processed %d of %d notes: %d succeeded, %d failed",
		result.TotalEligible, result.TotalFound, result.Succeeded, result.Failed)

	r.logger.Info("ocr batch finished",
		logging.Int("total_found", result.TotalFound),
		logging.Int("total_eligible", result.TotalEligible),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Duration("duration", result.Duration))

	if err := r.notifier.NotifyBatchCompleted(ctx, result.Succeeded, result.Failed, result.Duration); err != nil {
		r.logger.Warn("batch completion notification failed", logging.Error(err))
	}
	return result, nil
}

// RetryFailed resets failed transcriptions back to pending and runs a batch
// over them. With no ids every failed transcription is reset.
func (r *Runner) RetryFailed(ctx context.Context, noteIDs ...string) (*Result, error) {
	reset, err := r.store.ResetFailed(ctx, noteIDs...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ocr", "retry failed", "failed to reset failed transcriptions", err)
	}
	r.logger.Info("reset failed transcriptions", logging.Int64("count", reset))

	maxItems := int(reset)
	if len(noteIDs) == 0 {
		maxItems = 0
	}
	if reset == 0 {
		return &Result{Message: "no failed transcriptions to retry"}, nil
	}
	return r.RunBatch(ctx, maxItems)
}

func (r *Runner) processNote(ctx context.Context, note *notes.Note) (ItemOutcome, bool) {
	itemCtx := services.WithNoteID(ctx, note.ID)
	itemCtx = services.WithUserID(itemCtx, note.UserID)
	log := logging.WithContext(itemCtx, r.logger)

	won, err := r.store.ClaimTranscription(itemCtx, note.ID)
	if err != nil {
		log.Error("claim failed", logging.Error(err))
		return ItemOutcome{}, false
	}
	if !won {
		log.Debug("claim lost, note already in flight or completed")
		return ItemOutcome{}, false
	}

	started := time.Now()
	text, err := r.extractor.ExtractText(itemCtx, note.ImageURL)
	elapsed := time.Since(started).Milliseconds()
	if err != nil {
		message := strings.TrimSpace(err.Error())
		// The row was claimed, so release it even when ctx is gone.
		failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if failErr := r.store.FailTranscription(failCtx, note.ID, message); failErr != nil {
			log.Error("failed to mark transcription failed", logging.Error(failErr))
		}
		r.recorder.RecordFailure(failCtx, note.UserID, note.ID, message, elapsed)
		log.Warn("text extraction failed", logging.Error(err))
		return ItemOutcome{NoteID: note.ID, Status: string(notes.StatusFailed), Message: message}, true
	}

	if err := r.store.CompleteTranscription(itemCtx, note.ID, text); err != nil {
		message := strings.TrimSpace(err.Error())
		// Release the claim so the note stays retryable.
		failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if failErr := r.store.FailTranscription(failCtx, note.ID, message); failErr != nil {
			log.Error("failed to mark transcription failed", logging.Error(failErr))
		}
		r.recorder.RecordFailure(failCtx, note.UserID, note.ID, message, elapsed)
		log.Error("failed to store transcription", logging.Error(err))
		return ItemOutcome{NoteID: note.ID, Status: string(notes.StatusFailed), Message: message}, true
	}

	r.recorder.RecordSuccess(itemCtx, note.UserID, note.ID, elapsed)
	log.Info("note transcribed", logging.Int64("duration_ms", elapsed))
	return ItemOutcome{NoteID: note.ID, Status: string(notes.StatusCompleted)}, true
}
