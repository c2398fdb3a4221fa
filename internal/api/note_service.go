package api

import (
	"context"

	"readinghub/internal/notes"
)

// NoteReader abstracts the store interactions needed for API queries.
type NoteReader interface {
	ListNotes(ctx context.Context, filter notes.NoteFilter) ([]*notes.Note, error)
	TranscriptionStatuses(ctx context.Context, noteIDs []string) (map[string]notes.OCRStatus, error)
	TranscriptionByNote(ctx context.Context, noteID string) (*notes.Transcription, error)
}

// NoteService exposes read-only note queries returning API DTOs.
type NoteService struct {
	store NoteReader
}

// NewNoteService constructs a NoteService around the provided reader.
func NewNoteService(store NoteReader) *NoteService {
	if store == nil {
		return nil
	}
	return &NoteService{store: store}
}

// List returns notes matching the filter with their OCR status attached.
func (s *NoteService) List(ctx context.Context, filter notes.NoteFilter) ([]Note, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.ListNotes(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	statuses, err := s.store.TranscriptionStatuses(ctx, ids)
	if err != nil {
		return nil, err
	}
	return FromNotes(items, statuses), nil
}

// Transcription fetches the transcription for one note, or nil when the
// note has never been claimed.
func (s *NoteService) Transcription(ctx context.Context, noteID string) (*Transcription, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	tr, err := s.store.TranscriptionByNote(ctx, noteID)
	if err != nil || tr == nil {
		return nil, err
	}
	dto := FromTranscription(tr)
	return &dto, nil
}
