// Package cache maps completed (source, style) pairs to artifact
// filenames so repeated requests for the same work are free. The index
// is a single pretty-printed JSON document rewritten wholesale on every
// mutation; mutation frequency is low enough that the full rewrite is
// acceptable.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const indexFilename = "cache_index.json"

// Index is the disk-backed cache of processed videos. All mutations are
// serialized under one mutex so the load-mutate-persist sequence is
// atomic with respect to concurrent writers.
type Index struct {
	mu        sync.Mutex
	dir       string
	hashWidth int
	entries   map[string]string
}

// Load opens (or initializes) the index stored under dir. A missing,
// unreadable or malformed index file degrades to an empty cache rather
// than failing startup.
func Load(dir string, hashWidth int) *Index {
	idx := &Index{
		dir:       dir,
		hashWidth: hashWidth,
		entries:   make(map[string]string),
	}

	data, err := os.ReadFile(filepath.Join(dir, indexFilename))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error loading cache index: %v", err)
		}
		return idx
	}
	if err := json.Unmarshal(data, &idx.entries); err != nil {
		log.Printf("Malformed cache index, starting empty: %v", err)
		idx.entries = make(map[string]string)
	}
	return idx
}

// Key derives the deterministic cache key for a source and style: a
// fixed-width md5 prefix of the source identifier joined with the style
// id. The source identifier is treated as an opaque string; collisions
// at the configured width are accepted as negligible for this workload.
func (idx *Index) Key(source, style string) string {
	sum := md5.Sum([]byte(source))
	return hex.EncodeToString(sum[:])[:idx.hashWidth] + "_" + style
}

// Lookup returns the artifact filename for key, but only if the
// referenced file still exists on disk. A stale entry whose file was
// removed out-of-band reads as a miss, so the index self-heals against
// partial deletions.
func (idx *Index) Lookup(key string) (string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	filename, ok := idx.entries[key]
	if !ok {
		return "", false
	}
	if _, err := os.Stat(filepath.Join(idx.dir, filename)); err != nil {
		return "", false
	}
	return filename, true
}

// Insert records key -> filename and persists the whole index. Persist
// errors are logged, never surfaced to the job that completed: the
// in-memory index simply runs ahead of disk until the next save works.
func (idx *Index) Insert(key, filename string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries[key] = filename
	idx.persistLocked()
}

// Clear deletes every referenced artifact, resets the index and
// persists it. Deletion is best-effort: a file that is already gone is
// not an error, and a failed deletion does not abort the remainder of
// the clear. The joined deletion errors, if any, are returned.
func (idx *Index) Clear() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var errs []error
	for _, filename := range idx.entries {
		path := filepath.Join(idx.dir, filename)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("removing %s: %w", filename, err))
		}
	}
	idx.entries = make(map[string]string)
	idx.persistLocked()
	return errors.Join(errs...)
}

// Stats reports the entry count and the total size of all referenced
// files that still exist on disk.
func (idx *Index) Stats() (entries int, totalBytes int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, filename := range idx.entries {
		if info, err := os.Stat(filepath.Join(idx.dir, filename)); err == nil {
			totalBytes += info.Size()
		}
	}
	return len(idx.entries), totalBytes
}

// Filenames returns the set of artifact filenames currently indexed.
func (idx *Index) Filenames() map[string]bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	out := make(map[string]bool, len(idx.entries))
	for _, filename := range idx.entries {
		out[filename] = true
	}
	return out
}

func (idx *Index) persistLocked() {
	data, err := json.MarshalIndent(idx.entries, "", "  ")
	if err != nil {
		log.Printf("Error encoding cache index: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(idx.dir, indexFilename), data, 0o644); err != nil {
		log.Printf("Error saving cache index: %v", err)
	}
}
