// Package notifications delivers OCR pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Batch and error events can be toggled independently so a quiet
// deployment can keep error alerts without per-batch noise.
//
// Extend this package if you need alternative transports; pipeline code
// depends only on the simple Service interface.
package notifications
