// Package services holds cross-cutting helpers shared by the external
// service integrations: a sentinel error taxonomy used to classify
// failures, and context annotation helpers that thread request identity
// (note, user, correlation id) through blocking operations.
package services
