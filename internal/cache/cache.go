// Package cache keeps loaded datasets in memory between requests.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lokdhaba/dataviz/internal/dataset"
)

// Config contains cache configuration.
type Config struct {
	RawCacheSizeMB int
	RawTTL         time.Duration
	DatasetEntries int
}

// Manager holds decompressed dataset files and their parsed records.
// Bundles are derived per request and never stored here.
type Manager struct {
	rawCache     *bigcache.BigCache
	datasetCache *lru.Cache[string, dataset.Dataset]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	// Few shards: a single dataset file must fit in one shard.
	rawCacheConfig := bigcache.Config{
		Shards:             16,
		LifeWindow:         cfg.RawTTL,
		CleanWindow:        cfg.RawTTL / 2,
		MaxEntriesInWindow: 1024,
		MaxEntrySize:       512 * 1024,
		HardMaxCacheSize:   cfg.RawCacheSizeMB,
		Verbose:            false,
	}

	rawCache, err := bigcache.New(context.Background(), rawCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create raw dataset cache: %w", err)
	}

	datasetCache, err := lru.New[string, dataset.Dataset](cfg.DatasetEntries)
	if err != nil {
		rawCache.Close()
		return nil, fmt.Errorf("failed to create dataset cache: %w", err)
	}

	return &Manager{
		rawCache:     rawCache,
		datasetCache: datasetCache,
	}, nil
}

// GetRaw retrieves decompressed file bytes.
func (m *Manager) GetRaw(key string) ([]byte, bool) {
	data, err := m.rawCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetRaw stores decompressed file bytes.
func (m *Manager) SetRaw(key string, data []byte) error {
	return m.rawCache.Set(key, data)
}

// GetDataset retrieves parsed records. Callers must not modify them.
func (m *Manager) GetDataset(key string) (dataset.Dataset, bool) {
	return m.datasetCache.Get(key)
}

// SetDataset stores parsed records.
func (m *Manager) SetDataset(key string, d dataset.Dataset) {
	m.datasetCache.Add(key, d)
}

// BundleKey identifies the inputs of one bundle request. It is used as an
// HTTP entity tag. A nil bucket list (all buckets enabled) and an empty one
// (none enabled) produce different keys; bucket order does not matter.
func BundleKey(datasetID, viz string, buckets []string, change bool) string {
	base := fmt.Sprintf("bundle:%s/%s:change=%t", datasetID, viz, change)
	if buckets == nil {
		return base
	}
	if len(buckets) == 0 {
		return base + ":none"
	}

	sorted := append([]string(nil), buckets...)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(base))
	h.Write([]byte(strings.Join(sorted, "\x00")))
	return base + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"raw_cache_len":     m.rawCache.Len(),
		"raw_cache_cap":     m.rawCache.Capacity(),
		"dataset_cache_len": m.datasetCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.rawCache.Close()
}
