// Package audit persists the structured trace of every cycle: decision,
// execution, skip, or halt. Records are queryable after a WAL index so
// streaming consumers can resume where they left off.
package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/wardenbot/warden/internal/domain"
)

const (
	DefaultDir   = "./wal/audit"
	segmentLimit = 1000
	maxSegments  = 50

	auditKeyPrefix = "audit_"
)

// Entry couples an audit record with its WAL index.
type Entry struct {
	Index  uint64             `json:"index"`
	Record domain.AuditRecord `json:"record"`
}

// WALStore persists audit records in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed audit log.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "audit_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init audit WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends one audit record.
func (s *WALStore) Save(record domain.AuditRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("audit store is not initialized")
	}
	if record.Account == "" {
		return errors.New("audit record account is required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal audit record")
	}

	key := fmt.Sprintf("%s%s", auditKeyPrefix, record.Account)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// RecordsAfter returns all audit records written after the given WAL
// index.
func (s *WALStore) RecordsAfter(index uint64) ([]Entry, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("audit store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	entries := make([]Entry, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, auditKeyPrefix) {
			continue
		}

		var record domain.AuditRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, errors.Wrap(err, "decode audit record")
		}
		entries = append(entries, Entry{Index: idx, Record: record})
	}

	return entries, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("audit store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
