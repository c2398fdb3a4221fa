package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const transcriptionColumns = "id, note_id, extracted_text, quote_content, memo_content, status, error_message, created_at, updated_at"

// TranscriptionByNote fetches the transcription for a note. Returns nil when absent.
func (s *Store) TranscriptionByNote(ctx context.Context, noteID string) (*Transcription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transcriptionColumns+` FROM transcriptions WHERE note_id = ?`, noteID)
	tr, err := scanTranscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcription: %w", err)
	}
	return tr, nil
}

// TranscriptionStatuses returns the current status for each of the given
// note ids. Notes without a transcription are absent from the result.
func (s *Store) TranscriptionStatuses(ctx context.Context, noteIDs []string) (map[string]OCRStatus, error) {
	result := make(map[string]OCRStatus, len(noteIDs))
	if len(noteIDs) == 0 {
		return result, nil
	}
	args := make([]any, len(noteIDs))
	for i, id := range noteIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT note_id, status FROM transcriptions WHERE note_id IN (`+makePlaceholders(len(noteIDs))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query transcription statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID, status string
		if err := rows.Scan(&noteID, &status); err != nil {
			return nil, fmt.Errorf("scan transcription status: %w", err)
		}
		result[noteID] = OCRStatus(status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcription statuses: %w", err)
	}
	return result, nil
}

// ClaimTranscription atomically moves a note's transcription into the
// processing state, creating the row when absent. It reports false when the
// transcription is already processing or completed, which guarantees at most
// one in-flight OCR attempt per note across concurrent batch runs.
func (s *Store) ClaimTranscription(ctx context.Context, noteID string) (bool, error) {
	if strings.TrimSpace(noteID) == "" {
		return false, errors.New("claim transcription: note id required")
	}
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO transcriptions (id, note_id, extracted_text, status, created_at, updated_at)
         VALUES (?, ?, '', ?, ?, ?)
         ON CONFLICT(note_id) DO UPDATE SET
             status = excluded.status,
             error_message = NULL,
             updated_at = excluded.updated_at
         WHERE transcriptions.status IN (?, ?)`,
		uuid.NewString(), noteID, string(StatusProcessing), now, now,
		string(StatusPending), string(StatusFailed),
	)
	if err != nil {
		return false, fmt.Errorf("claim transcription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim transcription rows affected: %w", err)
	}
	return affected > 0, nil
}

// CompleteTranscription stores the extracted text and marks the
// transcription completed.
func (s *Store) CompleteTranscription(ctx context.Context, noteID, extractedText string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE transcriptions
         SET extracted_text = ?, status = ?, error_message = NULL, updated_at = ?
         WHERE note_id = ?`,
		strings.TrimSpace(extractedText), string(StatusCompleted), timestamp(time.Now()), noteID,
	)
	if err != nil {
		return fmt.Errorf("complete transcription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete transcription rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTranscriptionNotFound
	}
	return nil
}

// FailTranscription marks the transcription failed with the given message.
func (s *Store) FailTranscription(ctx context.Context, noteID, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE transcriptions
         SET status = ?, error_message = ?, updated_at = ?
         WHERE note_id = ?`,
		string(StatusFailed), strings.TrimSpace(message), timestamp(time.Now()), noteID,
	)
	if err != nil {
		return fmt.Errorf("fail transcription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail transcription rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTranscriptionNotFound
	}
	return nil
}

// ResetFailed moves failed transcriptions back to pending for reprocessing.
// With no ids it resets every failed transcription.
func (s *Store) ResetFailed(ctx context.Context, noteIDs ...string) (int64, error) {
	now := timestamp(time.Now())
	if len(noteIDs) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE transcriptions
             SET status = ?, error_message = NULL, updated_at = ?
             WHERE status = ?`,
			string(StatusPending), now, string(StatusFailed),
		)
		if err != nil {
			return 0, fmt.Errorf("reset failed transcriptions: %w", err)
		}
		return res.RowsAffected()
	}

	args := make([]any, 0, len(noteIDs)+3)
	args = append(args, string(StatusPending), now, string(StatusFailed))
	for _, id := range noteIDs {
		args = append(args, id)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE transcriptions
         SET status = ?, error_message = NULL, updated_at = ?
         WHERE status = ? AND note_id IN (`+makePlaceholders(len(noteIDs))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset selected transcriptions: %w", err)
	}
	return res.RowsAffected()
}

// UpdateTranscriptionContent stores user edits to the quote and memo fields.
// Nil pointers leave the corresponding column untouched.
func (s *Store) UpdateTranscriptionContent(ctx context.Context, noteID string, quoteContent, memoContent *string) error {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if quoteContent != nil {
		sets = append(sets, "quote_content = ?")
		args = append(args, nullableString(*quoteContent))
	}
	if memoContent != nil {
		sets = append(sets, "memo_content = ?")
		args = append(args, nullableString(*memoContent))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, timestamp(time.Now()), noteID)

	res, err := s.execWithRetry(
		ctx,
		`UPDATE transcriptions SET `+strings.Join(sets, ", ")+` WHERE note_id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update transcription content: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transcription content rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTranscriptionNotFound
	}
	return nil
}

func scanTranscription(scanner interface{ Scan(dest ...any) error }) (*Transcription, error) {
	var (
		tr      Transcription
		quote   sql.NullString
		memo    sql.NullString
		status  string
		errMsg  sql.NullString
		created string
		updated string
	)
	if err := scanner.Scan(
		&tr.ID,
		&tr.NoteID,
		&tr.ExtractedText,
		&quote,
		&memo,
		&status,
		&errMsg,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}
	tr.QuoteContent = quote.String
	tr.MemoContent = memo.String
	tr.Status = OCRStatus(status)
	tr.ErrorMessage = errMsg.String
	tr.CreatedAt = parseTimestamp(created)
	tr.UpdatedAt = parseTimestamp(updated)
	return &tr, nil
}
