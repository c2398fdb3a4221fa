package testsupport

import (
	"context"
	"testing"

	"readinghub/internal/config"
	"readinghub/internal/notes"
)

// MustOpenStore opens a store against the test config and closes it on cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *notes.Store {
	t.Helper()
	store, err := notes.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Fixture bundles the rows most tests need: one user, one book.
type Fixture struct {
	User *notes.User
	Book *notes.Book
}

// SeedFixture inserts a user and a book for note creation.
func SeedFixture(t testing.TB, store *notes.Store) Fixture {
	t.Helper()
	ctx := context.Background()
	user, err := store.CreateUser(ctx, "Test Reader", "reader@example.test", true)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	book, err := store.CreateBook(ctx, "The Test Book", "A. Author", "https://covers.example.test/1.jpg")
	if err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return Fixture{User: user, Book: book}
}

// SeedImageNote inserts a photo note carrying an image URL.
func SeedImageNote(t testing.TB, store *notes.Store, fx Fixture, imageURL string) *notes.Note {
	t.Helper()
	note, err := store.CreateNote(context.Background(), notes.NewNote{
		UserID:   fx.User.ID,
		BookID:   fx.Book.ID,
		Type:     notes.TypePhoto,
		ImageURL: imageURL,
		IsPublic: true,
	})
	if err != nil {
		t.Fatalf("seed image note: %v", err)
	}
	return note
}
