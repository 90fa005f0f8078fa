// Package fills persists the append-only fill ledger. The ledger is the
// source of truth for positions: fills are written once and never
// mutated.
package fills

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/wardenbot/warden/internal/domain"
)

const (
	DefaultDir   = "./wal/fills"
	segmentLimit = 1000
	maxSegments  = 100

	fillKeyPrefix = "fill_"
)

// WALStore persists fills in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed fill ledger.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "fill_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init fill WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends one fill to the ledger.
func (s *WALStore) Save(fill domain.Fill) error {
	if s == nil || s.wal == nil {
		return errors.New("fill store is not initialized")
	}
	if fill.Account == "" {
		return errors.New("fill account is required")
	}

	payload, err := json.Marshal(fill)
	if err != nil {
		return errors.Wrap(err, "marshal fill")
	}

	key := fillKey(fill.Account, fill.Pair.Symbol())

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// ListFills returns all fills for an account and pair, ordered by
// timestamp.
func (s *WALStore) ListFills(account string, pair domain.Pair) ([]domain.Fill, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("fill store is not initialized")
	}

	key := fillKey(account, pair.Symbol())

	s.mu.RLock()
	defer s.mu.RUnlock()

	var fills []domain.Fill
	for idx := uint64(1); idx <= s.wal.CurrentIndex(); idx++ {
		entryKey, payload, err := s.wal.Get(idx)
		if err != nil || entryKey != key {
			continue
		}

		var fill domain.Fill
		if err := json.Unmarshal(payload, &fill); err != nil {
			return nil, errors.Wrap(err, "decode fill")
		}
		fills = append(fills, fill)
	}

	sort.SliceStable(fills, func(i, j int) bool {
		return fills[i].Timestamp.Before(fills[j].Timestamp)
	})

	return fills, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("fill store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

func fillKey(account, symbol string) string {
	return fmt.Sprintf("%s%s_%s", fillKeyPrefix, account, symbol)
}
