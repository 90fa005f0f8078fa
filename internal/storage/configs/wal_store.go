// Package configs persists the mutable per-account strategy config.
// Each save appends a full record; the latest record for an account
// wins on load, so the WAL doubles as an edit history.
package configs

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/wardenbot/warden/internal/domain"
)

const (
	DefaultDir   = "./wal/configs"
	segmentLimit = 100
	maxSegments  = 10

	configKeyPrefix = "config_"
)

// WALStore persists strategy configs in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed config store.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "config_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init config WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save writes a full config record for the account.
func (s *WALStore) Save(cfg domain.StrategyConfig) error {
	if s == nil || s.wal == nil {
		return errors.New("config store is not initialized")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	key := fmt.Sprintf("%s%s", configKeyPrefix, cfg.Account)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// Load returns the latest config record for the account. The second
// return value reports whether any record exists.
func (s *WALStore) Load(account string) (domain.StrategyConfig, bool, error) {
	if s == nil || s.wal == nil {
		return domain.StrategyConfig{}, false, errors.New("config store is not initialized")
	}

	key := fmt.Sprintf("%s%s", configKeyPrefix, account)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		cfg   domain.StrategyConfig
		found bool
	)
	for idx := uint64(1); idx <= s.wal.CurrentIndex(); idx++ {
		entryKey, payload, err := s.wal.Get(idx)
		if err != nil || entryKey != key {
			continue
		}

		var record domain.StrategyConfig
		if err := json.Unmarshal(payload, &record); err != nil {
			return domain.StrategyConfig{}, false, errors.Wrap(err, "decode config")
		}
		cfg = record
		found = true
	}

	return cfg, found, nil
}

// Accounts lists every account that has at least one config record.
func (s *WALStore) Accounts() ([]string, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("config store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var accounts []string
	for idx := uint64(1); idx <= s.wal.CurrentIndex(); idx++ {
		key, _, err := s.wal.Get(idx)
		if err != nil || len(key) <= len(configKeyPrefix) {
			continue
		}
		account := key[len(configKeyPrefix):]
		if _, ok := seen[account]; ok {
			continue
		}
		seen[account] = struct{}{}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("config store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
