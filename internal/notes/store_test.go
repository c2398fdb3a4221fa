package notes_test

import (
	"context"
	"fmt"
	"testing"

	"readinghub/internal/notes"
	"readinghub/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)

	ctx := context.Background()
	note, err := store.CreateNote(ctx, notes.NewNote{
		UserID:   fx.User.ID,
		BookID:   fx.Book.ID,
		Title:    "Opening lines",
		Type:     notes.TypeQuote,
		Content:  "Call me Ishmael.",
		IsPublic: true,
		Tags:     []string{"classics", " classics ", ""},
	})
	if err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}
	if note.ID == "" {
		t.Fatal("expected note ID to be assigned")
	}
	if len(note.Tags) != 1 || note.Tags[0] != "classics" {
		t.Fatalf("expected tags normalized and deduplicated, got %#v", note.Tags)
	}

	fetched, err := store.GetNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("GetNote failed: %v", err)
	}
	if fetched == nil || fetched.Content != "Call me Ishmael." {
		t.Fatalf("unexpected fetched note: %#v", fetched)
	}
	if fetched.Type != notes.TypeQuote {
		t.Fatalf("expected quote type, got %s", fetched.Type)
	}
}

func TestCreateNoteRequiresImageForPhotoTypes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)

	_, err := store.CreateNote(context.Background(), notes.NewNote{
		UserID: fx.User.ID,
		BookID: fx.Book.ID,
		Type:   notes.TypePhoto,
	})
	if err == nil {
		t.Fatal("expected error when photo note lacks image url")
	}
}

func TestListNotesFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := store.CreateNote(ctx, notes.NewNote{
			UserID:  fx.User.ID,
			BookID:  fx.Book.ID,
			Type:    notes.TypeMemo,
			Content: fmt.Sprintf("memo %d", i),
		}); err != nil {
			t.Fatalf("CreateNote failed: %v", err)
		}
	}
	testsupport.SeedImageNote(t, store, fx, "https://img.example.test/a.png")

	memos, err := store.ListNotes(ctx, notes.NoteFilter{UserID: fx.User.ID, Type: notes.TypeMemo})
	if err != nil {
		t.Fatalf("ListNotes failed: %v", err)
	}
	if len(memos) != 3 {
		t.Fatalf("expected 3 memos, got %d", len(memos))
	}

	limited, err := store.ListNotes(ctx, notes.NoteFilter{UserID: fx.User.ID, Limit: 2})
	if err != nil {
		t.Fatalf("ListNotes with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 notes with limit, got %d", len(limited))
	}
}

func TestDeleteNoteEnforcesOwnership(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)
	note := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/b.png")

	ctx := context.Background()
	if err := store.DeleteNote(ctx, note.ID, "someone-else"); err != notes.ErrNoteNotFound {
		t.Fatalf("expected ErrNoteNotFound for wrong owner, got %v", err)
	}
	if err := store.DeleteNote(ctx, note.ID, fx.User.ID); err != nil {
		t.Fatalf("DeleteNote failed: %v", err)
	}
	if fetched, err := store.GetNote(ctx, note.ID); err != nil || fetched != nil {
		t.Fatalf("expected note gone, got %#v err=%v", fetched, err)
	}
}

func TestSelectEligibleSkipsCompletedAndProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)

	ctx := context.Background()
	missing := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/missing.png")
	failed := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/failed.png")
	completed := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/done.png")
	inflight := testsupport.SeedImageNote(t, store, fx, "https://img.example.test/inflight.png")

	// Memo notes never qualify regardless of image presence.
	if _, err := store.CreateNote(ctx, notes.NewNote{
		UserID: fx.User.ID, BookID: fx.Book.ID, Type: notes.TypeMemo, Content: "text only",
	}); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	mustClaim(t, store, failed.ID)
	if err := store.FailTranscription(ctx, failed.ID, "ocr exploded"); err != nil {
		t.Fatalf("FailTranscription failed: %v", err)
	}
	mustClaim(t, store, completed.ID)
	if err := store.CompleteTranscription(ctx, completed.ID, "done text"); err != nil {
		t.Fatalf("CompleteTranscription failed: %v", err)
	}
	mustClaim(t, store, inflight.ID)

	eligible, err := store.SelectEligible(ctx, 10)
	if err != nil {
		t.Fatalf("SelectEligible failed: %v", err)
	}
	ids := make(map[string]bool, len(eligible))
	for _, n := range eligible {
		ids[n.ID] = true
	}
	if len(eligible) != 2 || !ids[missing.ID] || !ids[failed.ID] {
		t.Fatalf("expected exactly missing+failed notes eligible, got %#v", ids)
	}

	count, err := store.CountEligible(ctx)
	if err != nil {
		t.Fatalf("CountEligible failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 eligible, got %d", count)
	}
}

func TestSelectEligibleHonorsLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)

	for i := 0; i < 5; i++ {
		testsupport.SeedImageNote(t, store, fx, fmt.Sprintf("https://img.example.test/%d.png", i))
	}

	eligible, err := store.SelectEligible(context.Background(), 3)
	if err != nil {
		t.Fatalf("SelectEligible failed: %v", err)
	}
	if len(eligible) != 3 {
		t.Fatalf("expected limit of 3, got %d", len(eligible))
	}
}

func mustClaim(t *testing.T, store *notes.Store, noteID string) {
	t.Helper()
	claimed, err := store.ClaimTranscription(context.Background(), noteID)
	if err != nil {
		t.Fatalf("ClaimTranscription failed: %v", err)
	}
	if !claimed {
		t.Fatalf("expected claim to succeed for %s", noteID)
	}
}
