// Package config loads, normalizes, and validates the TOML configuration
// shared by the readinghub daemon and CLI.
package config
