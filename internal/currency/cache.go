package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/i474232898/place-info/internal/fault"
)

// ErrCacheMiss is returned by Cache.Load when nothing has been stored yet.
var ErrCacheMiss = errors.New("currency cache miss")

// Cache persists the last successful currency response.
type Cache interface {
	// Load returns the stored record, ErrCacheMiss, or a fault.CacheCorruption error.
	Load(ctx context.Context) (Record, error)
	// Store replaces the stored record as a whole.
	Store(ctx context.Context, rec Record) error
}

// FileCache keeps one record in a JSON file. Writes go to a temporary file in
// the same directory and are renamed over the target, so readers see either
// the previous record or the new one.
type FileCache struct {
	path string
}

func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

func (c *FileCache) Path() string {
	return c.path
}

func (c *FileCache) Load(ctx context.Context) (Record, error) {
	const op = "currency.FileCache.Load"

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrCacheMiss
	}
	if err != nil {
		return Record{}, fault.New(fault.CacheCorruption, op, err)
	}
	return decodeRecord(op, data)
}

func (c *FileCache) Store(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

func decodeRecord(op string, data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fault.New(fault.CacheCorruption, op, err)
	}
	if rec.Timestamp.IsZero() {
		return Record{}, fault.New(fault.CacheCorruption, op, errors.New("record has no timestamp"))
	}
	if len(rec.Data) == 0 || string(rec.Data) == "null" {
		return Record{}, fault.New(fault.CacheCorruption, op, errors.New("record has no data"))
	}
	return rec, nil
}
