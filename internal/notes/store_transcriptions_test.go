package notes_test

import (
	"context"
	"testing"

	"readinghub/internal/notes"
	"readinghub/internal/testsupport"
)

func TestClaimTranscriptionLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)
	note := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/claim.png")

	ctx := context.Background()

	// First claim creates the row in processing state.
	claimed, err := store.ClaimTranscription(ctx, note.ID)
	if err != nil {
		t.Fatalf("ClaimTranscription failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to succeed")
	}
	tr, err := store.TranscriptionByNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("TranscriptionByNote failed: %v", err)
	}
	if tr == nil || tr.Status != notes.StatusProcessing {
		t.Fatalf("expected processing transcription, got %#v", tr)
	}

	// A second claim must lose while the first is in flight.
	claimed, err = store.ClaimTranscription(ctx, note.ID)
	if err != nil {
		t.Fatalf("second ClaimTranscription failed: %v", err)
	}
	if claimed {
		t.Fatal("expected concurrent claim to lose")
	}

	if err := store.CompleteTranscription(ctx, note.ID, "  the extracted text  "); err != nil {
		t.Fatalf("CompleteTranscription failed: %v", err)
	}
	tr, err = store.TranscriptionByNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("TranscriptionByNote failed: %v", err)
	}
	if tr.Status != notes.StatusCompleted || tr.ExtractedText != "the extracted text" {
		t.Fatalf("unexpected completed transcription: %#v", tr)
	}

	// Completed transcriptions cannot be reclaimed.
	claimed, err = store.ClaimTranscription(ctx, note.ID)
	if err != nil {
		t.Fatalf("ClaimTranscription after completion failed: %v", err)
	}
	if claimed {
		t.Fatal("expected claim on completed transcription to lose")
	}
}

func TestFailedTranscriptionCanBeReclaimed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)
	note := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/retry.png")

	ctx := context.Background()
	mustClaim(t, store, note.ID)
	if err := store.FailTranscription(ctx, note.ID, "timeout talking to ocr"); err != nil {
		t.Fatalf("FailTranscription failed: %v", err)
	}

	tr, err := store.TranscriptionByNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("TranscriptionByNote failed: %v", err)
	}
	if tr.Status != notes.StatusFailed || tr.ErrorMessage != "timeout talking to ocr" {
		t.Fatalf("unexpected failed transcription: %#v", tr)
	}

	claimed, err := store.ClaimTranscription(ctx, note.ID)
	if err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected failed transcription to be reclaimable")
	}
	tr, _ = store.TranscriptionByNote(ctx, note.ID)
	if tr.Status != notes.StatusProcessing || tr.ErrorMessage != "" {
		t.Fatalf("expected processing with cleared error, got %#v", tr)
	}
}

func TestResetFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)

	ctx := context.Background()
	var failedIDs []string
	for i := 0; i < 3; i++ {
		note := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/reset.png")
		mustClaim(t, store, note.ID)
		if err := store.FailTranscription(ctx, note.ID, "boom"); err != nil {
			t.Fatalf("FailTranscription failed: %v", err)
		}
		failedIDs = append(failedIDs, note.ID)
	}

	// Subset reset touches only the requested note.
	count, err := store.ResetFailed(ctx, failedIDs[0])
	if err != nil {
		t.Fatalf("ResetFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reset, got %d", count)
	}
	statuses, err := store.TranscriptionStatuses(ctx, failedIDs)
	if err != nil {
		t.Fatalf("TranscriptionStatuses failed: %v", err)
	}
	if statuses[failedIDs[0]] != notes.StatusPending {
		t.Fatalf("expected first reset to pending, got %s", statuses[failedIDs[0]])
	}
	if statuses[failedIDs[1]] != notes.StatusFailed || statuses[failedIDs[2]] != notes.StatusFailed {
		t.Fatalf("expected remaining failed, got %#v", statuses)
	}

	// Blanket reset drains the rest.
	count, err = store.ResetFailed(ctx)
	if err != nil {
		t.Fatalf("blanket ResetFailed failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 reset, got %d", count)
	}

	// Reset rows are pending and must stay visible to batch selection.
	eligible, err := store.CountEligible(ctx)
	if err != nil {
		t.Fatalf("CountEligible failed: %v", err)
	}
	if eligible != len(failedIDs) {
		t.Fatalf("expected %d eligible after reset, got %d", len(failedIDs), eligible)
	}
	selected, err := store.SelectEligible(ctx, 10)
	if err != nil {
		t.Fatalf("SelectEligible failed: %v", err)
	}
	if len(selected) != len(failedIDs) {
		t.Fatalf("expected %d selected after reset, got %d", len(failedIDs), len(selected))
	}
}

func TestUpdateTranscriptionContent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)
	note := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/edit.png")

	ctx := context.Background()
	mustClaim(t, store, note.ID)
	if err := store.CompleteTranscription(ctx, note.ID, "raw ocr text"); err != nil {
		t.Fatalf("CompleteTranscription failed: %v", err)
	}

	quote := "A tidy quotation."
	memo := "My thoughts."
	if err := store.UpdateTranscriptionContent(ctx, note.ID, &quote, &memo); err != nil {
		t.Fatalf("UpdateTranscriptionContent failed: %v", err)
	}

	tr, err := store.TranscriptionByNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("TranscriptionByNote failed: %v", err)
	}
	if tr.QuoteContent != quote || tr.MemoContent != memo {
		t.Fatalf("unexpected content: %#v", tr)
	}
	if tr.ExtractedText != "raw ocr text" {
		t.Fatal("user edits must not clobber extracted text")
	}

	if err := store.UpdateTranscriptionContent(ctx, "no-such-note", &quote, nil); err != notes.ErrTranscriptionNotFound {
		t.Fatalf("expected ErrTranscriptionNotFound, got %v", err)
	}
}

func TestUsageRecordingAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)
	note := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/usage.png")

	ctx := context.Background()
	entries := []notes.LogEntry{
		{UserID: fx.User.ID, NoteID: note.ID, Status: notes.StatusCompleted, DurationMS: 120},
		{UserID: fx.User.ID, NoteID: note.ID, Status: notes.StatusFailed, ErrorMessage: "unreadable image", DurationMS: 340},
		{UserID: fx.User.ID, NoteID: note.ID, Status: notes.StatusCompleted, DurationMS: 80},
	}
	for _, entry := range entries {
		if err := store.RecordUsage(ctx, entry); err != nil {
			t.Fatalf("RecordUsage failed: %v", err)
		}
	}

	stats, err := store.UsageStats(ctx)
	if err != nil {
		t.Fatalf("UsageStats failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one stat row, got %d", len(stats))
	}
	if stats[0].SuccessCount != 2 || stats[0].FailureCount != 1 {
		t.Fatalf("unexpected counters: %#v", stats[0])
	}
	if stats[0].LastProcessedAt == nil {
		t.Fatal("expected last processed timestamp")
	}

	logs, err := store.RecentLogs(ctx, 2)
	if err != nil {
		t.Fatalf("RecentLogs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs with limit, got %d", len(logs))
	}
	if logs[0].DurationMS != 80 {
		t.Fatalf("expected newest log first, got %#v", logs[0])
	}
}

func TestSystemStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)

	ctx := context.Background()
	done := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/h1.png")
	broken := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/h2.png")
	mustClaim(t, store, done.ID)
	if err := store.CompleteTranscription(ctx, done.ID, "text"); err != nil {
		t.Fatalf("CompleteTranscription failed: %v", err)
	}
	mustClaim(t, store, broken.ID)
	if err := store.FailTranscription(ctx, broken.ID, "nope"); err != nil {
		t.Fatalf("FailTranscription failed: %v", err)
	}

	health, err := store.TranscriptionHealth(ctx)
	if err != nil {
		t.Fatalf("TranscriptionHealth failed: %v", err)
	}
	if health.Total != 2 || health.Completed != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}

	stats, err := store.SystemStats(ctx)
	if err != nil {
		t.Fatalf("SystemStats failed: %v", err)
	}
	if stats.Users != 1 || stats.Books != 1 || stats.Notes != 2 {
		t.Fatalf("unexpected system stats: %#v", stats)
	}
	if stats.NewNotesToday != 2 || stats.NewUsersToday != 1 {
		t.Fatalf("expected fresh rows counted in 24h window: %#v", stats)
	}
}
