package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps identity records in memory and persists them to a binary
// snapshot file. A JSON metadata file with the same content minus embeddings
// is written alongside for external inspection; it is never read back.
//
// A single RWMutex covers both the in-memory maps and the snapshot files:
// Snapshot readers hold the read lock only while copying, mutations hold the
// write lock across the mutation and the durable write.
type FileStore struct {
	snapshotPath string
	metadataPath string
	model        string

	mu      sync.RWMutex
	records map[string]*IdentityRecord
	order   []string
}

// snapshotFile is the gob wire format of the registry. Parallel slices keep
// the format stable against record struct changes.
type snapshotFile struct {
	StudentIDs   []string
	Names        []string
	Embeddings   [][]float32
	RegisteredAt []time.Time
	SavedAt      time.Time
	Model        string
	Total        int
}

// metadataFile is the human-readable summary written next to the snapshot.
type metadataFile struct {
	TotalStudents int               `json:"total_students"`
	LastUpdated   string            `json:"last_updated"`
	ModelVersion  string            `json:"model_version"`
	Students      []metadataStudent `json:"students"`
}

type metadataStudent struct {
	StudentID    string `json:"student_id"`
	Name         string `json:"name"`
	RegisteredAt string `json:"registered_at"`
}

// NewFileStore creates a store persisting to the given snapshot and metadata
// paths. Call Load before use.
func NewFileStore(snapshotPath, metadataPath, model string) *FileStore {
	return &FileStore{
		snapshotPath: snapshotPath,
		metadataPath: metadataPath,
		model:        model,
		records:      make(map[string]*IdentityRecord),
	}
}

// Load restores records from the snapshot file. A missing file leaves the
// store empty without error. Insertion order follows the snapshot order.
func (s *FileStore) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.snapshotPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Infof("no snapshot at %s, starting with empty registry", s.snapshotPath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not read snapshot: %w", err)
	}

	var snap snapshotFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return fmt.Errorf("could not decode snapshot %s: %w", s.snapshotPath, err)
	}

	if len(snap.StudentIDs) != len(snap.Names) || len(snap.StudentIDs) != len(snap.Embeddings) {
		return fmt.Errorf("corrupted snapshot %s: mismatched record counts", s.snapshotPath)
	}

	s.records = make(map[string]*IdentityRecord, len(snap.StudentIDs))
	s.order = s.order[:0]
	for i, id := range snap.StudentIDs {
		rec := &IdentityRecord{
			StudentID: id,
			Name:      snap.Names[i],
			Embedding: snap.Embeddings[i],
		}
		if i < len(snap.RegisteredAt) {
			rec.RegisteredAt = snap.RegisteredAt[i]
		}
		s.records[id] = rec
		s.order = append(s.order, id)
	}

	log.Infof("loaded %d students from snapshot (model %s)", len(s.order), snap.Model)
	return nil
}

// Register inserts a new record or updates an existing one in place, keeping
// its original position, then persists. The in-memory mutation is kept even
// when persistence fails so a retry of Save can succeed.
func (s *FileStore) Register(_ context.Context, rec IdentityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.StudentID]; ok {
		existing.Name = rec.Name
		existing.Embedding = rec.Embedding
		existing.RegisteredAt = rec.RegisteredAt
	} else {
		clone := rec
		s.records[rec.StudentID] = &clone
		s.order = append(s.order, rec.StudentID)
	}

	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Remove deletes a record and persists. Unknown IDs return ErrNotFound.
func (s *FileStore) Remove(_ context.Context, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[studentID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, studentID)
	}

	delete(s.records, studentID)
	for i, id := range s.order {
		if id == studentID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Save persists the current state without mutating it.
func (s *FileStore) Save(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// List returns summaries in insertion order.
func (s *FileStore) List(_ context.Context) ([]IdentitySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]IdentitySummary, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		summaries = append(summaries, IdentitySummary{StudentID: rec.StudentID, Name: rec.Name})
	}
	return summaries, nil
}

// Snapshot returns an independent copy of all records in insertion order.
// Embedding slices are copied so callers can hold the result across mutations.
func (s *FileStore) Snapshot(_ context.Context) ([]IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]IdentityRecord, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		embedding := make([]float32, len(rec.Embedding))
		copy(embedding, rec.Embedding)
		records = append(records, IdentityRecord{
			StudentID:    rec.StudentID,
			Name:         rec.Name,
			Embedding:    embedding,
			RegisteredAt: rec.RegisteredAt,
		})
	}
	return records, nil
}

// Count returns the number of enrolled identities.
func (s *FileStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

// Stats returns store statistics.
func (s *FileStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Count: len(s.order),
		Model: s.model,
	}
	if info, err := os.Stat(s.snapshotPath); err == nil {
		stats.SnapshotExists = true
		stats.LastUpdated = info.ModTime().UTC().Format(time.RFC3339)
	}
	return stats, nil
}

// persistLocked writes the snapshot and metadata files. Caller must hold the
// write lock. Both files are written to a temp file first and renamed so a
// crash mid-write cannot leave a truncated snapshot.
func (s *FileStore) persistLocked() error {
	snap := snapshotFile{
		StudentIDs:   make([]string, 0, len(s.order)),
		Names:        make([]string, 0, len(s.order)),
		Embeddings:   make([][]float32, 0, len(s.order)),
		RegisteredAt: make([]time.Time, 0, len(s.order)),
		SavedAt:      time.Now().UTC(),
		Model:        s.model,
		Total:        len(s.order),
	}
	meta := metadataFile{
		TotalStudents: len(s.order),
		LastUpdated:   snap.SavedAt.Format(time.RFC3339),
		ModelVersion:  s.model,
		Students:      make([]metadataStudent, 0, len(s.order)),
	}

	for _, id := range s.order {
		rec := s.records[id]
		snap.StudentIDs = append(snap.StudentIDs, rec.StudentID)
		snap.Names = append(snap.Names, rec.Name)
		snap.Embeddings = append(snap.Embeddings, rec.Embedding)
		snap.RegisteredAt = append(snap.RegisteredAt, rec.RegisteredAt)
		meta.Students = append(meta.Students, metadataStudent{
			StudentID:    rec.StudentID,
			Name:         rec.Name,
			RegisteredAt: rec.RegisteredAt.UTC().Format(time.RFC3339),
		})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}
	if err := atomicWrite(s.snapshotPath, buf.Bytes()); err != nil {
		return err
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode metadata: %w", err)
	}
	if err := atomicWrite(s.metadataPath, metaJSON); err != nil {
		// Snapshot already landed; metadata is advisory only.
		log.Warnf("could not write metadata file: %v", err)
	}

	return nil
}

// atomicWrite writes data to a temp file in the target directory and renames
// it over the destination.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not replace %s: %w", path, err)
	}
	return nil
}
