// Package daemon hosts the long-running reading hub process: it owns the
// notes store, enforces single-instance execution through a lock file,
// and serves the admin HTTP API the CLI talks to.
package daemon
