package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ErrNotFound is returned for dataset IDs that are not configured.
var ErrNotFound = errors.New("dataset not found")

// Source describes one configured dataset file and its display metadata.
// Table names the table of SQLite sources.
type Source struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	ElectionType string `json:"election_type"`
	StateName    string `json:"state_name"`
	AssemblyNo   int    `json:"assembly_no"`
	Table        string `json:"table,omitempty"`
}

// Cache is the storage Store uses between requests.
type Cache interface {
	GetRaw(key string) ([]byte, bool)
	SetRaw(key string, data []byte) error
	GetDataset(key string) (Dataset, bool)
	SetDataset(key string, d Dataset)
}

// Store loads configured datasets on demand.
type Store struct {
	dir     string
	sources map[string]Source
	order   []string
	cache   Cache
	logger  *zap.Logger

	versionsMu sync.Mutex
	versions   map[string]string
}

// NewStore creates a store over sources. Relative paths resolve against
// dir. cache may be nil.
func NewStore(dir string, sources []Source, cache Cache, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		dir:      dir,
		sources:  make(map[string]Source, len(sources)),
		order:    make([]string, 0, len(sources)),
		cache:    cache,
		logger:   logger,
		versions: make(map[string]string, len(sources)),
	}
	for _, src := range sources {
		if _, dup := s.sources[src.ID]; !dup {
			s.order = append(s.order, src.ID)
		}
		s.sources[src.ID] = src
	}
	return s
}

// Sources returns the configured sources in configuration order.
func (s *Store) Sources() []Source {
	out := make([]Source, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sources[id])
	}
	return out
}

// Source returns the source registered under id.
func (s *Store) Source(id string) (Source, bool) {
	src, ok := s.sources[id]
	return src, ok
}

// Load returns the records of dataset id. The result is shared with other
// callers and must not be modified.
func (s *Store) Load(id string) (Dataset, error) {
	src, ok := s.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if s.cache != nil {
		if d, ok := s.cache.GetDataset(id); ok && s.Version(id) != "" {
			return d, nil
		}
	}

	format, compression, err := Detect(src.Path)
	if err != nil {
		return nil, err
	}

	var (
		d       Dataset
		version string
	)
	if format == FormatSQLite {
		path := s.resolve(src.Path)
		version, err = fileVersion(path)
		if err == nil {
			d, err = LoadSQLite(path, src.Table)
		}
	} else {
		var raw []byte
		raw, err = s.readRaw(id, src.Path, compression)
		if err != nil {
			return nil, err
		}
		version = contentVersion(raw)
		d, err = Decode(format, raw)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}

	s.versionsMu.Lock()
	s.versions[id] = version
	s.versionsMu.Unlock()

	if s.cache != nil {
		s.cache.SetDataset(id, d)
	}
	s.logger.Info("dataset loaded",
		zap.String("dataset", id),
		zap.String("path", src.Path),
		zap.Int("records", len(d)),
		zap.String("version", version),
	)
	return d, nil
}

// Version identifies the content of dataset id as of its last Load, or ""
// before the first one.
func (s *Store) Version(id string) string {
	s.versionsMu.Lock()
	defer s.versionsMu.Unlock()
	return s.versions[id]
}

func contentVersion(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}

func fileVersion(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x-%x", info.Size(), info.ModTime().UnixNano()), nil
}

func (s *Store) readRaw(id, path, compression string) ([]byte, error) {
	if s.cache != nil {
		if raw, ok := s.cache.GetRaw(id); ok {
			return raw, nil
		}
	}

	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", id, err)
	}
	raw, err := Decompress(compression, data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}

	if s.cache != nil {
		if err := s.cache.SetRaw(id, raw); err != nil {
			s.logger.Warn("raw dataset not cached", zap.String("dataset", id), zap.Error(err))
		}
	}
	return raw, nil
}

func (s *Store) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.dir, path)
}
