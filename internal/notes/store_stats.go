package notes

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordUsage upserts the per-user counters and appends a log row for one
// OCR outcome. Both writes happen in a single transaction so the dashboard
// counters never drift from the log.
func (s *Store) RecordUsage(ctx context.Context, entry LogEntry) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	stamp := timestamp(now)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin usage tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		successDelta, failureDelta := 0, 0
		if entry.Status == StatusCompleted {
			successDelta = 1
		} else {
			failureDelta = 1
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ocr_usage_stats (user_id, success_count, failure_count, last_processed_at)
             VALUES (?, ?, ?, ?)
             ON CONFLICT(user_id) DO UPDATE SET
                 success_count = success_count + excluded.success_count,
                 failure_count = failure_count + excluded.failure_count,
                 last_processed_at = excluded.last_processed_at`,
			entry.UserID, successDelta, failureDelta, stamp,
		); err != nil {
			return fmt.Errorf("upsert usage stats: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ocr_logs (user_id, note_id, status, error_message, duration_ms, created_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			entry.UserID,
			nullableString(entry.NoteID),
			string(entry.Status),
			nullableString(entry.ErrorMessage),
			entry.DurationMS,
			stamp,
		); err != nil {
			return fmt.Errorf("insert usage log: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit usage tx: %w", err)
		}
		return nil
	})
}

// UsageStats returns per-user OCR counters, most recently active first.
func (s *Store) UsageStats(ctx context.Context) ([]UsageStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, success_count, failure_count, last_processed_at
         FROM ocr_usage_stats
         ORDER BY last_processed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query usage stats: %w", err)
	}
	defer rows.Close()

	var result []UsageStat
	for rows.Next() {
		var (
			stat UsageStat
			last sql.NullString
		)
		if err := rows.Scan(&stat.UserID, &stat.SuccessCount, &stat.FailureCount, &last); err != nil {
			return nil, fmt.Errorf("scan usage stat: %w", err)
		}
		if last.Valid {
			t := parseTimestamp(last.String)
			stat.LastProcessedAt = &t
		}
		result = append(result, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage stats: %w", err)
	}
	return result, nil
}

// RecentLogs returns the newest OCR log rows, capped at limit.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, note_id, status, error_message, duration_ms, created_at
         FROM ocr_logs
         ORDER BY id DESC
         LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ocr logs: %w", err)
	}
	defer rows.Close()

	var result []LogEntry
	for rows.Next() {
		var (
			entry    LogEntry
			noteID   sql.NullString
			status   string
			errMsg   sql.NullString
			duration sql.NullInt64
			created  string
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &noteID, &status, &errMsg, &duration, &created); err != nil {
			return nil, fmt.Errorf("scan ocr log: %w", err)
		}
		entry.NoteID = noteID.String
		entry.Status = OCRStatus(status)
		entry.ErrorMessage = errMsg.String
		entry.DurationMS = duration.Int64
		entry.CreatedAt = parseTimestamp(created)
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ocr logs: %w", err)
	}
	return result, nil
}

// TranscriptionHealth returns aggregate transcription counts per status.
func (s *Store) TranscriptionHealth(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM transcriptions GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("query transcription health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan transcription health: %w", err)
		}
		summary.Total += count
		switch OCRStatus(status) {
		case StatusPending:
			summary.Pending = count
		case StatusProcessing:
			summary.Processing = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return HealthSummary{}, fmt.Errorf("iterate transcription health: %w", err)
	}
	return summary, nil
}

// SystemStats returns the admin dashboard aggregates: entity totals and
// activity in the trailing 24 hours.
func (s *Store) SystemStats(ctx context.Context) (SystemStats, error) {
	var stats SystemStats
	yesterday := timestamp(time.Now().Add(-24 * time.Hour))

	queries := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&stats.Users, `SELECT COUNT(1) FROM users`, nil},
		{&stats.Books, `SELECT COUNT(1) FROM books`, nil},
		{&stats.Notes, `SELECT COUNT(1) FROM notes`, nil},
		{&stats.NewUsersToday, `SELECT COUNT(1) FROM users WHERE created_at >= ?`, []any{yesterday}},
		{&stats.NewNotesToday, `SELECT COUNT(1) FROM notes WHERE created_at >= ?`, []any{yesterday}},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dest); err != nil {
			return SystemStats{}, fmt.Errorf("system stats: %w", err)
		}
	}
	return stats, nil
}
