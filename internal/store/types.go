// Package store implements the registry of enrolled identities. The default
// backend keeps records in memory and persists them as an atomic snapshot
// file plus a human-readable metadata summary; an optional PostgreSQL
// backend lives in the postgres subpackage.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/event"
)

var log = event.Log

var (
	// ErrNotFound is returned when an operation references an unknown student ID.
	ErrNotFound = errors.New("store: student not found")

	// ErrPersistence is returned when the in-memory mutation succeeded but the
	// durable snapshot write failed. The in-memory state may disagree with the
	// durable store; callers should reload rather than trust memory.
	ErrPersistence = errors.New("store: failed to persist snapshot")

	// ErrInvalidStudentID is returned for IDs that fail format validation.
	ErrInvalidStudentID = errors.New("store: invalid student ID")
)

// IdentityRecord is a single enrolled identity. Embedding is always the
// unit-normalized mean of the accepted enrollment samples.
type IdentityRecord struct {
	StudentID    string
	Name         string
	Embedding    []float32
	RegisteredAt time.Time
}

// IdentitySummary is the listing view of a record (no embedding).
type IdentitySummary struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
}

// Stats describes the state of a registry backend.
type Stats struct {
	Count          int    `json:"count"`
	Model          string `json:"model"`
	SnapshotExists bool   `json:"snapshot_exists"`
	LastUpdated    string `json:"last_updated,omitempty"`
}

// Registry is the storage interface consumed by the recognition engine and
// the transport layer. Implementations serialize mutations against snapshot
// reads; Snapshot returns an independent copy safe to match against while
// mutations proceed.
type Registry interface {
	// Load restores the registry from durable storage. A missing snapshot is
	// not an error; the registry starts empty.
	Load(ctx context.Context) error

	// Register inserts a new record or updates an existing one in place, then
	// persists. Returns ErrPersistence if the durable write failed after the
	// in-memory mutation.
	Register(ctx context.Context, rec IdentityRecord) error

	// Remove deletes a record. Returns ErrNotFound without mutation for
	// unknown IDs.
	Remove(ctx context.Context, studentID string) error

	// List returns summaries in insertion order.
	List(ctx context.Context) ([]IdentitySummary, error)

	// Snapshot returns a copy of all records in insertion order.
	Snapshot(ctx context.Context) ([]IdentityRecord, error)

	// Count returns the number of enrolled identities.
	Count(ctx context.Context) (int, error)

	// Stats returns backend statistics.
	Stats(ctx context.Context) (Stats, error)
}

// NormalizeStudentID trims whitespace and uppercases an ID.
func NormalizeStudentID(studentID string) string {
	return strings.ToUpper(strings.TrimSpace(studentID))
}

// ValidateStudentID normalizes and validates an ID, returning the normalized
// form. Valid IDs are 6-15 characters after normalization (e.g. MIT2025001).
func ValidateStudentID(studentID string) (string, error) {
	normalized := NormalizeStudentID(studentID)
	if len(normalized) < constants.StudentIDMinLen || len(normalized) > constants.StudentIDMaxLen {
		return "", fmt.Errorf("%w: %q must be %d-%d characters",
			ErrInvalidStudentID, normalized, constants.StudentIDMinLen, constants.StudentIDMaxLen)
	}
	return normalized, nil
}
