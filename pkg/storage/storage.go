package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ken/siftcluster/pkg/core/feature"
)

// featureExt is the file extension of a stored feature set
const featureExt = ".feat"

var (
	// ErrSetNotFound is returned when a feature set with the specified name is not found
	ErrSetNotFound = errors.New("feature set not found")

	// ErrSetAlreadyExists is returned when attempting to insert a feature set under a name that already exists
	ErrSetAlreadyExists = errors.New("feature set already exists")

	// ErrInvalidName is returned for names that cannot be used as file names
	ErrInvalidName = errors.New("invalid feature set name")
)

// FeatureStore defines the interface for feature set storage operations
type FeatureStore interface {
	// Insert adds a new feature set under name
	Insert(name string, features []*feature.Feature) error

	// Get retrieves a feature set by name
	Get(name string) ([]*feature.Feature, error)

	// Update replaces an existing feature set
	Update(name string, features []*feature.Feature) error

	// Delete removes a feature set by name
	Delete(name string) error

	// List returns all set names in sorted order
	List() ([]string, error)

	// Count returns the number of sets in the store
	Count() (int, error)

	// Close closes the store
	Close() error
}

func copyFeatures(features []*feature.Feature) []*feature.Feature {
	out := make([]*feature.Feature, len(features))
	for i, f := range features {
		out[i] = f.Copy()
	}
	return out
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// MemoryStore is an in-memory implementation of FeatureStore
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[string][]*feature.Feature
}

// NewMemoryStore creates a new in-memory feature store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets: make(map[string][]*feature.Feature),
	}
}

func (s *MemoryStore) Insert(name string, features []*feature.Feature) error {
	if !validName(name) {
		return ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sets[name]; exists {
		return ErrSetAlreadyExists
	}

	// Store a copy so callers can keep mutating their slice
	s.sets[name] = copyFeatures(features)
	return nil
}

func (s *MemoryStore) Get(name string) ([]*feature.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	features, exists := s.sets[name]
	if !exists {
		return nil, ErrSetNotFound
	}

	return copyFeatures(features), nil
}

func (s *MemoryStore) Update(name string, features []*feature.Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sets[name]; !exists {
		return ErrSetNotFound
	}

	s.sets[name] = copyFeatures(features)
	return nil
}

func (s *MemoryStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sets[name]; !exists {
		return ErrSetNotFound
	}

	delete(s.sets, name)
	return nil
}

func (s *MemoryStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.sets))
	for name := range s.sets {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sets), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// FileStore keeps one file per feature set under a directory
type FileStore struct {
	baseDir  string
	memStore *MemoryStore
	mu       sync.Mutex
	isLoaded bool
}

// NewFileStore creates a new file-based feature store
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &FileStore{
		baseDir:  baseDir,
		memStore: NewMemoryStore(),
	}, nil
}

// ensureLoaded loads all sets from disk if not already loaded
func (s *FileStore) ensureLoaded() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isLoaded {
		return nil
	}

	files, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != featureExt {
			continue
		}

		path := filepath.Join(s.baseDir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read feature file %s: %w", path, err)
		}

		features, err := feature.DecodeSet(data)
		if err != nil {
			return fmt.Errorf("failed to decode feature file %s: %w", path, err)
		}

		s.memStore.sets[strings.TrimSuffix(file.Name(), featureExt)] = features
	}

	s.isLoaded = true
	return nil
}

func (s *FileStore) Insert(name string, features []*feature.Feature) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	if err := s.memStore.Insert(name, features); err != nil {
		return err
	}

	return s.saveSet(name, features)
}

func (s *FileStore) Get(name string) ([]*feature.Feature, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	return s.memStore.Get(name)
}

func (s *FileStore) Update(name string, features []*feature.Feature) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	if err := s.memStore.Update(name, features); err != nil {
		return err
	}

	return s.saveSet(name, features)
}

func (s *FileStore) Delete(name string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	if err := s.memStore.Delete(name); err != nil {
		return err
	}

	if err := os.Remove(s.path(name)); err != nil {
		return fmt.Errorf("failed to delete feature file: %w", err)
	}

	return nil
}

func (s *FileStore) List() ([]string, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	return s.memStore.List()
}

func (s *FileStore) Count() (int, error) {
	if err := s.ensureLoaded(); err != nil {
		return 0, err
	}

	return s.memStore.Count()
}

func (s *FileStore) Close() error {
	// Sets are written through on every change
	return nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.baseDir, name+featureExt)
}

// saveSet writes a feature set to disk
func (s *FileStore) saveSet(name string, features []*feature.Feature) error {
	if err := os.WriteFile(s.path(name), feature.EncodeSet(features), 0644); err != nil {
		return fmt.Errorf("failed to write feature file: %w", err)
	}
	return nil
}
