package notes

import (
	"strings"
	"time"
)

// NoteType categorizes a reading record.
type NoteType string

const (
	TypeQuote         NoteType = "quote"
	TypePhoto         NoteType = "photo"
	TypeMemo          NoteType = "memo"
	TypeTranscription NoteType = "transcription"
)

var noteTypeSet = map[NoteType]struct{}{
	TypeQuote:         {},
	TypePhoto:         {},
	TypeMemo:          {},
	TypeTranscription: {},
}

// ParseNoteType converts a string into a known NoteType.
func ParseNoteType(value string) (NoteType, bool) {
	normalized := NoteType(strings.ToLower(strings.TrimSpace(value)))
	_, ok := noteTypeSet[normalized]
	return normalized, ok
}

// HasImage reports whether the type carries an image that OCR can read.
func (t NoteType) HasImage() bool {
	return t == TypePhoto || t == TypeTranscription
}

// OCRStatus represents the lifecycle of a transcription.
type OCRStatus string

const (
	StatusPending    OCRStatus = "pending"
	StatusProcessing OCRStatus = "processing"
	StatusCompleted  OCRStatus = "completed"
	StatusFailed     OCRStatus = "failed"
)

var allStatuses = []OCRStatus{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[OCRStatus]struct{} {
	set := make(map[OCRStatus]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known transcription statuses.
func AllStatuses() []OCRStatus {
	cp := make([]OCRStatus, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known OCRStatus.
func ParseStatus(value string) (OCRStatus, bool) {
	normalized := OCRStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s OCRStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// User is a registered account. Identity is always passed explicitly;
// there is no ambient current-user lookup anywhere in the codebase.
type User struct {
	ID        string
	Name      string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
}

// Book is a catalog entry notes attach to.
type Book struct {
	ID            string
	Title         string
	Author        string
	CoverImageURL string
	CreatedAt     time.Time
}

// Note is a single user-authored reading record linked to a book.
type Note struct {
	ID         string
	UserID     string
	BookID     string
	Title      string
	Type       NoteType
	Content    string
	ImageURL   string
	PageNumber string
	IsPublic   bool
	Tags       []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewNote carries the caller-supplied fields for note creation.
type NewNote struct {
	UserID     string
	BookID     string
	Title      string
	Type       NoteType
	Content    string
	ImageURL   string
	PageNumber string
	IsPublic   bool
	Tags       []string
}

// NoteFilter narrows ListNotes results. Zero values match everything.
type NoteFilter struct {
	UserID string
	BookID string
	Type   NoteType
	Limit  int
}

// Transcription holds the OCR-derived text and processing status for a note.
type Transcription struct {
	ID            string
	NoteID        string
	ExtractedText string
	QuoteContent  string
	MemoContent   string
	Status        OCRStatus
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UsageStat aggregates OCR outcomes per user for the admin dashboard.
type UsageStat struct {
	UserID          string
	SuccessCount    int
	FailureCount    int
	LastProcessedAt *time.Time
}

// LogEntry is one append-only OCR processing record.
type LogEntry struct {
	ID           int64
	UserID       string
	NoteID       string
	Status       OCRStatus
	ErrorMessage string
	DurationMS   int64
	CreatedAt    time.Time
}

// HealthSummary describes aggregated transcription counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// SystemStats carries the admin dashboard aggregates.
type SystemStats struct {
	Users         int
	Books         int
	Notes         int
	NewUsersToday int
	NewNotesToday int
}
