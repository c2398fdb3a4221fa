package api

import (
	"time"

	"readinghub/internal/notes"
	"readinghub/internal/ocr"
)

// FromNote converts an internal note into its wire representation.
func FromNote(note *notes.Note) Note {
	if note == nil {
		return Note{}
	}
	return Note{
		ID:         note.ID,
		UserID:     note.UserID,
		BookID:     note.BookID,
		Title:      note.Title,
		Type:       string(note.Type),
		Content:    note.Content,
		ImageURL:   note.ImageURL,
		PageNumber: note.PageNumber,
		IsPublic:   note.IsPublic,
		Tags:       note.Tags,
		CreatedAt:  formatTime(note.CreatedAt),
		UpdatedAt:  formatTime(note.UpdatedAt),
	}
}

// FromNotes converts a slice of notes, annotating each with its OCR status
// when one is known.
func FromNotes(items []*notes.Note, statuses map[string]notes.OCRStatus) []Note {
	converted := make([]Note, 0, len(items))
	for _, item := range items {
		dto := FromNote(item)
		if status, ok := statuses[item.ID]; ok {
			dto.OCRStatus = string(status)
		}
		converted = append(converted, dto)
	}
	return converted
}

// FromTranscription converts a transcription record.
func FromTranscription(tr *notes.Transcription) Transcription {
	if tr == nil {
		return Transcription{}
	}
	return Transcription{
		ID:            tr.ID,
		NoteID:        tr.NoteID,
		Status:        string(tr.Status),
		ExtractedText: tr.ExtractedText,
		QuoteContent:  tr.QuoteContent,
		MemoContent:   tr.MemoContent,
		ErrorMessage:  tr.ErrorMessage,
		CreatedAt:     formatTime(tr.CreatedAt),
		UpdatedAt:     formatTime(tr.UpdatedAt),
	}
}

// FromUsageStats converts per-user usage counters.
func FromUsageStats(stats []notes.UsageStat) []UsageStat {
	converted := make([]UsageStat, 0, len(stats))
	for _, stat := range stats {
		dto := UsageStat{
			UserID:       stat.UserID,
			SuccessCount: int64(stat.SuccessCount),
			FailureCount: int64(stat.FailureCount),
		}
		if stat.LastProcessedAt != nil {
			dto.LastProcessedAt = formatTime(*stat.LastProcessedAt)
		}
		converted = append(converted, dto)
	}
	return converted
}

// FromLogEntries converts OCR log rows.
func FromLogEntries(entries []notes.LogEntry) []LogEntry {
	converted := make([]LogEntry, 0, len(entries))
	for _, entry := range entries {
		converted = append(converted, LogEntry{
			ID:           entry.ID,
			UserID:       entry.UserID,
			NoteID:       entry.NoteID,
			Status:       string(entry.Status),
			ErrorMessage: entry.ErrorMessage,
			DurationMS:   entry.DurationMS,
			CreatedAt:    formatTime(entry.CreatedAt),
		})
	}
	return converted
}

// FromBatchResult converts a runner result.
func FromBatchResult(result *ocr.Result) BatchResult {
	if result == nil {
		return BatchResult{}
	}
	items := make([]BatchItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, BatchItem{
			NoteID:  item.NoteID,
			Status:  item.Status,
			Message: item.Message,
		})
	}
	return BatchResult{
		TotalFound:    result.TotalFound,
		TotalEligible: result.TotalEligible,
		Succeeded:     result.Succeeded,
		Failed:        result.Failed,
		Items:         items,
		Message:       result.Message,
		DurationMS:    result.Duration.Milliseconds(),
	}
}

// FromHealth converts the transcription health summary.
func FromHealth(health notes.HealthSummary) TranscriptionHealth {
	return TranscriptionHealth{
		Total:      health.Total,
		Pending:    health.Pending,
		Processing: health.Processing,
		Completed:  health.Completed,
		Failed:     health.Failed,
	}
}

// FromSystemStats converts hub-wide counters.
func FromSystemStats(stats notes.SystemStats) SystemStats {
	return SystemStats{
		Users:         stats.Users,
		Books:         stats.Books,
		Notes:         stats.Notes,
		NewUsersToday: stats.NewUsersToday,
		NewNotesToday: stats.NewNotesToday,
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}
