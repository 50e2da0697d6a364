package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attend/internal/store"
)

// IdentityStore implements store.Registry on top of PostgreSQL with pgvector
// columns. Unlike the file backend there is no separate persistence step;
// every mutation is durable once the statement commits.
type IdentityStore struct {
	pool  *Pool
	model string
}

// NewIdentityStore creates a registry backed by the given pool.
func NewIdentityStore(pool *Pool, model string) *IdentityStore {
	return &IdentityStore{pool: pool, model: model}
}

// Load runs pending migrations. The database itself is the durable state, so
// there is nothing to restore into memory.
func (s *IdentityStore) Load(ctx context.Context) error {
	return s.pool.Migrate(ctx)
}

// Register upserts a record. The position column is assigned on first insert
// only, so re-enrollment keeps the original listing position.
func (s *IdentityStore) Register(ctx context.Context, rec store.IdentityRecord) error {
	_, err := s.pool.db.ExecContext(ctx, `
		INSERT INTO identities (student_id, name, embedding, registered_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id) DO UPDATE SET
			name = EXCLUDED.name,
			embedding = EXCLUDED.embedding,
			registered_at = EXCLUDED.registered_at
	`, rec.StudentID, rec.Name, pgvector.NewVector(rec.Embedding), rec.RegisteredAt)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	return nil
}

// Remove deletes a record. Unknown IDs return store.ErrNotFound.
func (s *IdentityStore) Remove(ctx context.Context, studentID string) error {
	result, err := s.pool.db.ExecContext(ctx, "DELETE FROM identities WHERE student_id = $1", studentID)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, studentID)
	}
	return nil
}

// List returns summaries in insertion order.
func (s *IdentityStore) List(ctx context.Context) ([]store.IdentitySummary, error) {
	rows, err := s.pool.db.QueryContext(ctx,
		"SELECT student_id, name FROM identities ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("listing identities: %w", err)
	}
	defer rows.Close()

	var summaries []store.IdentitySummary
	for rows.Next() {
		var sum store.IdentitySummary
		if err := rows.Scan(&sum.StudentID, &sum.Name); err != nil {
			return nil, fmt.Errorf("scanning identity: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating identities: %w", err)
	}
	return summaries, nil
}

// Snapshot returns all records with embeddings in insertion order.
func (s *IdentityStore) Snapshot(ctx context.Context) ([]store.IdentityRecord, error) {
	rows, err := s.pool.db.QueryContext(ctx,
		"SELECT student_id, name, embedding, registered_at FROM identities ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("loading identities: %w", err)
	}
	defer rows.Close()

	var records []store.IdentityRecord
	for rows.Next() {
		var rec store.IdentityRecord
		var vec pgvector.Vector
		if err := rows.Scan(&rec.StudentID, &rec.Name, &vec, &rec.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scanning identity: %w", err)
		}
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating identities: %w", err)
	}
	return records, nil
}

// Count returns the number of enrolled identities.
func (s *IdentityStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting identities: %w", err)
	}
	return count, nil
}

// Stats returns backend statistics.
func (s *IdentityStore) Stats(ctx context.Context) (store.Stats, error) {
	stats := store.Stats{Model: s.model, SnapshotExists: true}

	var lastUpdated sql.NullString
	err := s.pool.db.QueryRowContext(ctx, `
		SELECT COUNT(*), TO_CHAR(MAX(registered_at) AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM identities
	`).Scan(&stats.Count, &lastUpdated)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return store.Stats{}, fmt.Errorf("reading identity stats: %w", err)
	}
	if lastUpdated.Valid {
		stats.LastUpdated = lastUpdated.String
	}
	return stats, nil
}
