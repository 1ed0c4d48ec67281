package store

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store implementation for tests and embedding.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*EnrollmentRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]*EnrollmentRecord{}}
}

// Get returns the record for a device, or ErrNotFound.
func (s *MemoryStore) Get(deviceID string) (*EnrollmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	dup := *record
	return &dup, nil
}

// Put creates or overwrites the record keyed by its DeviceID.
func (s *MemoryStore) Put(record *EnrollmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *record
	s.records[record.DeviceID] = &dup
	return nil
}

// Delete removes the record for a device. Absent records are a no-op.
func (s *MemoryStore) Delete(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, deviceID)
	return nil
}

// List returns all records, ordered by device id.
func (s *MemoryStore) List() ([]*EnrollmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*EnrollmentRecord, 0, len(s.records))
	for _, r := range s.records {
		dup := *r
		out = append(out, &dup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

// SelectSingle returns the only record, ErrNotFound, or ErrAmbiguous.
func (s *MemoryStore) SelectSingle() (*EnrollmentRecord, error) {
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

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
