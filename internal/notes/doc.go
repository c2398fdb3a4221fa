// Package notes persists the reading-hub domain model: users, books,
// notes, their one-to-one OCR transcriptions, and the OCR usage telemetry
// consumed by the admin dashboard. Persistence is SQLite via database/sql.
//
// The transcription lifecycle is pending -> processing -> completed or
// failed. Claiming a transcription for processing is an atomic conditional
// transition so concurrent batch runs never double-process a note.
package notes
