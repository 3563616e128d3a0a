package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fabrik-io/fabrik/internal/ir"
)

const fileVersion = 1

// staleLockAge is how old a lock file must be before it is taken over.
const staleLockAge = 10 * time.Minute

// FileStore persists records in a JSON file. Every Put/Delete is flushed
// immediately so a resumed run after a partial failure sees accurate
// partial progress. The store holds a lock file for its lifetime.
type FileStore struct {
	mu      sync.Mutex
	path    string
	serial  int
	lineage string
	records map[string]*ir.Record
}

type stateFile struct {
	Version   int          `json:"version"`
	Serial    int          `json:"serial"`
	Lineage   string       `json:"lineage"`
	Resources []*ir.Record `json:"resources"`
}

// OpenFileStore loads (or initializes) the state file at path and acquires
// its lock. The caller must Close the store to release the lock.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		lineage: uuid.NewString(),
		records: make(map[string]*ir.Record),
	}
	if err := s.lock(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		s.unlock()
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	var file stateFile
	if err := json.Unmarshal(raw, &file); err != nil {
		s.unlock()
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	s.serial = file.Serial
	if file.Lineage != "" {
		s.lineage = file.Lineage
	}
	for _, rec := range file.Resources {
		// References serialize as ref:// strings; restore them.
		rec.Attributes = ir.NormalizeAttributes(rec.Attributes)
		s.records[rec.Address()] = rec
	}
	return s, nil
}

func (s *FileStore) Get(address string) (*ir.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[address]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Copy(), nil
}

func (s *FileStore) Put(record *ir.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Address()] = record.Copy()
	return s.flush()
}

func (s *FileStore) Delete(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, address)
	return s.flush()
}

func (s *FileStore) List() ([]*ir.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ir.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Copy())
	}
	return out, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flush(); err != nil {
		s.unlock()
		return err
	}
	return s.unlock()
}

// flush writes the whole state file. Callers hold s.mu.
func (s *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	s.serial++
	file := stateFile{
		Version: fileVersion,
		Serial:  s.serial,
		Lineage: s.lineage,
	}
	for _, rec := range s.records {
		file.Resources = append(file.Resources, rec)
	}
	sort.Slice(file.Resources, func(i, j int) bool {
		return file.Resources[i].Address() < file.Resources[j].Address()
	})

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", s.path, err)
	}
	return nil
}

// lock acquires a lock file next to the state file to prevent concurrent
// modifications. Locks older than staleLockAge are taken over.
func (s *FileStore) lock() error {
	lockPath := s.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := os.Stat(lockPath); err == nil {
		if time.Since(info.ModTime()) > staleLockAge {
			os.Remove(lockPath)
		} else {
			return fmt.Errorf("state is locked by another process (lock file: %s). "+
				"If this is an error, remove the lock file manually", lockPath)
		}
	}

	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(lockPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return nil
}

func (s *FileStore) unlock() error {
	if err := os.Remove(s.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (s *FileStore) lockPath() string {
	return s.path + ".lock"
}
