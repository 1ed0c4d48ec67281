package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FileStore keeps enrollment records in a single JSON document on disk,
// keyed by device id. Writes go to a temp file in the same directory and are
// renamed into place, so a crash mid-write leaves the previous state intact.
// The file is owner-only: it holds bearer secrets.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at the given path. The file and
// its parent directory are created lazily on the first Put.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the storage path (for display purposes).
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the record for a device, or ErrNotFound.
func (s *FileStore) Get(deviceID string) (*EnrollmentRecord, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	record, ok := records[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

// Put creates or overwrites the record keyed by its DeviceID.
func (s *FileStore) Put(record *EnrollmentRecord) error {
	if record == nil || record.DeviceID == "" {
		return fmt.Errorf("record must have a device id")
	}
	records, err := s.load()
	if err != nil {
		return err
	}
	records[record.DeviceID] = record
	return s.save(records)
}

// Delete removes the record for a device. Absent records are a no-op.
func (s *FileStore) Delete(deviceID string) error {
	records, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := records[deviceID]; !ok {
		return nil
	}
	delete(records, deviceID)
	return s.save(records)
}

// List returns all records, ordered by device id.
func (s *FileStore) List() ([]*EnrollmentRecord, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*EnrollmentRecord, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

// SelectSingle returns the only record, ErrNotFound, or ErrAmbiguous.
func (s *FileStore) SelectSingle() (*EnrollmentRecord, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return records[0], nil
	default:
		return nil, ErrAmbiguous
	}
}

func (s *FileStore) load() (map[string]*EnrollmentRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]*EnrollmentRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read enrollment store: %w", err)
	}

	records := map[string]*EnrollmentRecord{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse enrollment store %s: %w", s.path, err)
	}
	return records, nil
}

func (s *FileStore) save(records map[string]*EnrollmentRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode enrollment store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".enrollments-*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write enrollment store: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("set store permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace enrollment store: %w", err)
	}
	return nil
}
