// Package logging constructs the slog loggers used across the daemon and
// CLI, and defines the standardized structured field names so every
// component logs note/user/request identifiers the same way.
package logging
