// Package api defines wire-format types and converters for the daemon's
// HTTP API. It translates internal note and transcription models into
// transport-friendly DTOs so clients never couple to internal types.
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers.
// Internal enums (notes.NoteType, notes.OCRStatus) are exposed as
// lowercase strings and timestamps use RFC3339 with milliseconds.
package api
