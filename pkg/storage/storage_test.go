package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ken/siftcluster/pkg/core/feature"
)

func testSet(offset float64) []*feature.Feature {
	return []*feature.Feature{
		feature.New(offset, offset+1, 2, []float64{1, 2, 3}),
		feature.New(offset+4, offset+5, 3, []float64{4, 5, 6}),
	}
}

func sameFeatures(t *testing.T, want, got []*feature.Feature) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d features, got %d", len(want), len(got))
	}
	for i := range want {
		if !want[i].Equal(got[i]) || want[i].X != got[i].X || want[i].Y != got[i].Y || want[i].Scale != got[i].Scale {
			t.Errorf("Feature %d differs: want %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Failed to get count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty store, got count %d", count)
	}

	s1 := testSet(0)
	if err := store.Insert("s1", s1); err != nil {
		t.Fatalf("Failed to insert set: %v", err)
	}

	// Duplicate insert
	if err := store.Insert("s1", s1); err != ErrSetAlreadyExists {
		t.Errorf("Expected ErrSetAlreadyExists, got %v", err)
	}

	if err := store.Insert("../escape", s1); err != ErrInvalidName {
		t.Errorf("Expected ErrInvalidName, got %v", err)
	}

	got, err := store.Get("s1")
	if err != nil {
		t.Fatalf("Failed to get set: %v", err)
	}
	sameFeatures(t, s1, got)

	// Mutating the result must not reach the store
	got[0].X = 99
	again, _ := store.Get("s1")
	if again[0].X == 99 {
		t.Errorf("Store returned a shared feature")
	}

	updated := testSet(10)
	if err := store.Update("s1", updated); err != nil {
		t.Fatalf("Failed to update set: %v", err)
	}
	got, _ = store.Get("s1")
	sameFeatures(t, updated, got)

	if err := store.Update("missing", updated); err != ErrSetNotFound {
		t.Errorf("Expected ErrSetNotFound, got %v", err)
	}

	if _, err := store.Get("missing"); err != ErrSetNotFound {
		t.Errorf("Expected ErrSetNotFound, got %v", err)
	}

	if err := store.Insert("a0", testSet(1)); err != nil {
		t.Fatalf("Failed to insert set: %v", err)
	}
	names, err := store.List()
	if err != nil {
		t.Fatalf("Failed to list sets: %v", err)
	}
	if len(names) != 2 || names[0] != "a0" || names[1] != "s1" {
		t.Errorf("Expected [a0 s1], got %v", names)
	}

	if err := store.Delete("s1"); err != nil {
		t.Fatalf("Failed to delete set: %v", err)
	}
	if _, err := store.Get("s1"); err != ErrSetNotFound {
		t.Errorf("Expected ErrSetNotFound after delete, got %v", err)
	}
	if err := store.Delete("s1"); err != ErrSetNotFound {
		t.Errorf("Expected ErrSetNotFound, got %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}
}

func TestFileStore(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewFileStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Failed to get count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty store, got count %d", count)
	}

	s1 := testSet(0)
	if err := store.Insert("s1", s1); err != nil {
		t.Fatalf("Failed to insert set: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tempDir, "s1.feat")); err != nil {
		t.Fatalf("Failed to stat feature file: %v", err)
	}

	updated := testSet(10)
	if err := store.Update("s1", updated); err != nil {
		t.Fatalf("Failed to update set: %v", err)
	}

	if err := store.Insert("s2", testSet(20)); err != nil {
		t.Fatalf("Failed to insert set: %v", err)
	}
	if err := store.Delete("s2"); err != nil {
		t.Fatalf("Failed to delete set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "s2.feat")); !os.IsNotExist(err) {
		t.Errorf("Expected feature file to be deleted")
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	// Unrelated files in the directory are ignored on load
	if err := os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write stray file: %v", err)
	}

	reopened, err := NewFileStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to reopen file store: %v", err)
	}

	got, err := reopened.Get("s1")
	if err != nil {
		t.Fatalf("Failed to get set after reopen: %v", err)
	}
	sameFeatures(t, updated, got)

	names, _ := reopened.List()
	if len(names) != 1 || names[0] != "s1" {
		t.Errorf("Expected [s1], got %v", names)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	cases := map[string][]byte{
		"short header":      {1, 2, 3},
		"count beyond file": {0xff, 0xff, 0xff, 0xff},
		"truncated record":  {1, 0, 0, 0, 0, 0, 0, 0},
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			tempDir := t.TempDir()
			if err := os.WriteFile(filepath.Join(tempDir, "bad.feat"), data, 0644); err != nil {
				t.Fatalf("Failed to write corrupt file: %v", err)
			}

			store, err := NewFileStore(tempDir)
			if err != nil {
				t.Fatalf("Failed to create file store: %v", err)
			}

			if _, err := store.List(); !errors.Is(err, feature.ErrShortBuffer) {
				t.Errorf("Expected ErrShortBuffer for corrupt file, got %v", err)
			}
		})
	}
}
