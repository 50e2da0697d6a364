package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	return NewFileStore(
		filepath.Join(dir, "face_encodings.gob"),
		filepath.Join(dir, "student_metadata.json"),
		"Facenet512",
	)
}

func record(id, name string, embedding []float32) IdentityRecord {
	return IdentityRecord{
		StudentID:    id,
		Name:         name,
		Embedding:    embedding,
		RegisteredAt: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Register(ctx, record("MIT2025001", "Jana Nováková", []float32{0.1, 0.2, 0.3})); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Register(ctx, record("MIT2025002", "Petr Svoboda", []float32{0.4, 0.5, 0.6})); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Fresh store against the same files.
	reloaded := NewFileStore(s.snapshotPath, s.metadataPath, "Facenet512")
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	records, err := reloaded.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records after reload, got %d", len(records))
	}
	if records[0].StudentID != "MIT2025001" || records[1].StudentID != "MIT2025002" {
		t.Errorf("insertion order not preserved: %s, %s", records[0].StudentID, records[1].StudentID)
	}
	if records[0].Name != "Jana Nováková" {
		t.Errorf("unexpected name %q", records[0].Name)
	}
	for i, v := range []float32{0.1, 0.2, 0.3} {
		if records[0].Embedding[i] != v {
			t.Errorf("embedding[%d] = %f, expected %f", i, records[0].Embedding[i], v)
		}
	}
}

func TestFileStore_LoadMissingSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Load(ctx); err != nil {
		t.Fatalf("expected no error for missing snapshot, got %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty store, got %d records", count)
	}
}

func TestFileStore_UpdateKeepsPosition(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, id := range []string{"MIT2025001", "MIT2025002", "MIT2025003"} {
		if err := s.Register(ctx, record(id, "Student "+id, []float32{1})); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	// Re-enrolling the first student must update in place, not move to the end.
	if err := s.Register(ctx, record("MIT2025001", "Renamed", []float32{2})); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	records, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].StudentID != "MIT2025001" || records[0].Name != "Renamed" {
		t.Errorf("expected updated record at position 0, got %s (%s)", records[0].StudentID, records[0].Name)
	}
	if records[0].Embedding[0] != 2 {
		t.Errorf("expected updated embedding, got %f", records[0].Embedding[0])
	}
}

func TestFileStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Register(ctx, record("MIT2025001", "Jana", []float32{1})); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := s.Remove(ctx, "MIT2025001"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := s.Remove(ctx, "MIT2025001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for second remove, got %v", err)
	}

	count, _ := s.Count(ctx)
	if count != 0 {
		t.Errorf("expected empty store after remove, got %d", count)
	}
}

func TestFileStore_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Register(ctx, record("MIT2025001", "Jana", []float32{1, 2, 3})); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	records, _ := s.Snapshot(ctx)
	records[0].Embedding[0] = 99

	fresh, _ := s.Snapshot(ctx)
	if fresh[0].Embedding[0] != 1 {
		t.Error("mutating a snapshot leaked into the store")
	}
}

func TestFileStore_MetadataFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Register(ctx, record("MIT2025001", "Jana Nováková", []float32{1})); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	data, err := os.ReadFile(s.metadataPath)
	if err != nil {
		t.Fatalf("could not read metadata file: %v", err)
	}

	var meta struct {
		TotalStudents int    `json:"total_students"`
		ModelVersion  string `json:"model_version"`
		Students      []struct {
			StudentID string `json:"student_id"`
			Name      string `json:"name"`
		} `json:"students"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}

	if meta.TotalStudents != 1 || meta.ModelVersion != "Facenet512" {
		t.Errorf("unexpected metadata header: %+v", meta)
	}
	if len(meta.Students) != 1 || meta.Students[0].StudentID != "MIT2025001" {
		t.Errorf("unexpected students list: %+v", meta.Students)
	}
}

func TestValidateStudentID(t *testing.T) {
	cases := []struct {
		input    string
		expected string
		valid    bool
	}{
		{"mit2025001", "MIT2025001", true},
		{"  mit2025001  ", "MIT2025001", true},
		{"ABC123", "ABC123", true},                   // exactly 6
		{"ABCDEFGHIJ12345", "ABCDEFGHIJ12345", true}, // exactly 15
		{"ABC12", "", false},                         // 5, too short
		{"ABCDEFGHIJ123456", "", false},              // 16, too long
		{"   ", "", false},
	}

	for _, tc := range cases {
		got, err := ValidateStudentID(tc.input)
		if tc.valid {
			if err != nil {
				t.Errorf("ValidateStudentID(%q) failed: %v", tc.input, err)
			}
			if got != tc.expected {
				t.Errorf("ValidateStudentID(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		} else if !errors.Is(err, ErrInvalidStudentID) {
			t.Errorf("ValidateStudentID(%q) expected ErrInvalidStudentID, got %v", tc.input, err)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("Jiří Nový-Dvořák"); got != "jiri novy dvorak" {
		t.Errorf("unexpected normalization: %q", got)
	}
}

func TestMatchesQuery(t *testing.T) {
	summary := IdentitySummary{StudentID: "MIT2025001", Name: "Jiří Nový"}

	if !MatchesQuery(summary, "jiri") {
		t.Error("expected diacritics-insensitive name match")
	}
	if !MatchesQuery(summary, "mit2025") {
		t.Error("expected student ID prefix match")
	}
	if MatchesQuery(summary, "petr") {
		t.Error("unexpected match for unrelated query")
	}
	if !MatchesQuery(summary, "") {
		t.Error("empty query should match everything")
	}
}

func TestFindDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Two near-identical embeddings and one orthogonal.
	must := func(err error) {
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}
	must(s.Register(ctx, record("MIT2025001", "Jana", []float32{1, 0, 0, 0})))
	must(s.Register(ctx, record("MIT2025002", "Jana Again", []float32{0.99, 0.01, 0, 0})))
	must(s.Register(ctx, record("MIT2025003", "Petr", []float32{0, 1, 0, 0})))

	pairs, err := FindDuplicates(ctx, s, 0.15)
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	if len(pairs) != 1 {
		t.Fatalf("expected 1 duplicate pair, got %d", len(pairs))
	}
	if pairs[0].StudentIDA != "MIT2025001" || pairs[0].StudentIDB != "MIT2025002" {
		t.Errorf("unexpected pair: %s / %s", pairs[0].StudentIDA, pairs[0].StudentIDB)
	}
	if pairs[0].Distance > 0.15 {
		t.Errorf("reported distance %f above threshold", pairs[0].Distance)
	}
}

func TestFindDuplicates_EmptyAndSingle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	pairs, err := FindDuplicates(ctx, s, 0.15)
	if err != nil || pairs != nil {
		t.Errorf("expected no pairs on empty registry, got %v / %v", pairs, err)
	}

	if err := s.Register(ctx, record("MIT2025001", "Jana", []float32{1, 0})); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	pairs, err = FindDuplicates(ctx, s, 0.15)
	if err != nil || pairs != nil {
		t.Errorf("expected no pairs on single-record registry, got %v / %v", pairs, err)
	}
}
