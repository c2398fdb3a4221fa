package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Note describes a reading note in a transport-friendly format.
type Note struct {
	ID         string   `json:"id"`
	UserID     string   `json:"userId"`
	BookID     string   `json:"bookId,omitempty"`
	Title      string   `json:"title,omitempty"`
	Type       string   `json:"type"`
	Content    string   `json:"content,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	PageNumber string   `json:"pageNumber,omitempty"`
	IsPublic   bool     `json:"isPublic"`
	Tags       []string `json:"tags,omitempty"`
	OCRStatus  string   `json:"ocrStatus,omitempty"`
	CreatedAt  string   `json:"createdAt,omitempty"`
	UpdatedAt  string   `json:"updatedAt,omitempty"`
}

// Transcription is the wire form of an OCR transcription record.
type Transcription struct {
	ID            string `json:"id"`
	NoteID        string `json:"noteId"`
	Status        string `json:"status"`
	ExtractedText string `json:"extractedText,omitempty"`
	QuoteContent  string `json:"quoteContent,omitempty"`
	MemoContent   string `json:"memoContent,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// UsageStat summarizes OCR outcomes for one user.
type UsageStat struct {
	UserID          string `json:"userId"`
	SuccessCount    int64  `json:"successCount"`
	FailureCount    int64  `json:"failureCount"`
	LastProcessedAt string `json:"lastProcessedAt,omitempty"`
}

// LogEntry is one row of the append-only OCR processing log.
type LogEntry struct {
	ID           int64  `json:"id"`
	UserID       string `json:"userId"`
	NoteID       string `json:"noteId"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	DurationMS   int64  `json:"durationMs"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// BatchItem reports the outcome for one note within a batch.
type BatchItem struct {
	NoteID  string `json:"noteId"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// BatchResult summarizes one OCR reconciliation batch.
type BatchResult struct {
	TotalFound    int         `json:"totalFound"`
	TotalEligible int         `json:"totalEligible"`
	Succeeded     int         `json:"succeeded"`
	Failed        int         `json:"failed"`
	Items         []BatchItem `json:"items,omitempty"`
	Message       string      `json:"message"`
	DurationMS    int64       `json:"durationMs"`
}

// TranscriptionHealth breaks down transcription rows by status.
type TranscriptionHealth struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// SystemStats aggregates hub-wide counters.
type SystemStats struct {
	Users         int `json:"users"`
	Books         int `json:"books"`
	Notes         int `json:"notes"`
	NewUsersToday int `json:"newUsersToday"`
	NewNotesToday int `json:"newNotesToday"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool                `json:"running"`
	PID          int                 `json:"pid"`
	DatabasePath string              `json:"databasePath"`
	LockFilePath string              `json:"lockFilePath"`
	PendingOCR   int                 `json:"pendingOcr"`
	Health       TranscriptionHealth `json:"health"`
}

// TestNotificationResponse reports the outcome of a notification test.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// PendingResponse reports how many notes await transcription.
type PendingResponse struct {
	Pending int `json:"pending"`
}

// NoteListResponse wraps a collection of notes.
type NoteListResponse struct {
	Notes []Note `json:"notes"`
}

// TranscriptionResponse wraps a single transcription.
type TranscriptionResponse struct {
	Transcription Transcription `json:"transcription"`
}

// TranscriptionStatusesResponse maps note ids to their OCR status.
type TranscriptionStatusesResponse struct {
	Statuses map[string]string `json:"statuses"`
}

// UsageStatsResponse wraps per-user usage counters.
type UsageStatsResponse struct {
	Stats []UsageStat `json:"stats"`
}

// LogListResponse wraps recent OCR log rows.
type LogListResponse struct {
	Logs []LogEntry `json:"logs"`
}
