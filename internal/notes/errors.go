package notes

import "errors"

var (
	// ErrNoteNotFound is returned when an operation targets a note that does
	// not exist or is not owned by the caller.
	ErrNoteNotFound = errors.New("note not found")

	// ErrTranscriptionNotFound is returned when a transcription row is
	// required but absent.
	ErrTranscriptionNotFound = errors.New("transcription not found")
)
