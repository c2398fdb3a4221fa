// Package ocr reconciles image-bearing notes with their transcriptions.
//
// The Runner selects notes that still need text extraction, claims each
// one atomically so concurrent batches never double-process a note, and
// fans the work out to the cloud OCR endpoint with bounded concurrency.
// One bad image never aborts the batch; each note succeeds or fails on
// its own and the outcome is recorded in the usage log.
package ocr
