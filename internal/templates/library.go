// Package templates keeps an index of the .pptx templates stored on the
// server so requests can name one instead of uploading it.
package templates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var ErrNotFound = errors.New("template not found")

type Entry struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	Checksum string    `json:"checksum"`
}

// Library indexes the .pptx files of one directory. The index is refreshed
// by Scan and, while Start runs, on every change in the directory. File
// contents are read from disk on each Read.
type Library struct {
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]Entry
}

func NewLibrary(dir string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		dir:     dir,
		logger:  logger.With("component", "templates"),
		entries: make(map[string]Entry),
	}
}

// Enabled is false when no directory is configured.
func (l *Library) Enabled() bool {
	return l != nil && l.dir != ""
}

// Start watches the directory until ctx is cancelled.
func (l *Library) Start(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create template directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return err
	}
	l.logger.Info("template library watching", "dir", l.dir)

	l.Scan()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isTemplate(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				l.logger.Debug("template directory changed", "file", filepath.Base(event.Name), "op", event.Op.String())
				l.Scan()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("template watcher error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// Scan rebuilds the index from the directory contents.
func (l *Library) Scan() {
	if !l.Enabled() {
		return
	}
	files, err := os.ReadDir(l.dir)
	if err != nil {
		l.logger.Warn("failed to scan template directory", "dir", l.dir, "error", err)
		return
	}

	l.mu.RLock()
	previous := l.entries
	l.mu.RUnlock()

	entries := make(map[string]Entry)
	for _, f := range files {
		if f.IsDir() || !isTemplate(f.Name()) {
			continue
		}
		entry, err := l.describe(f.Name(), previous[f.Name()])
		if err != nil {
			l.logger.Warn("skipping template", "file", f.Name(), "error", err)
			continue
		}
		entries[entry.Name] = entry
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	l.logger.Info("template library indexed", "templates", len(entries))
}

// describe stats a template and hashes it. The previous checksum is reused
// while size and modification time are unchanged.
func (l *Library) describe(name string, prev Entry) (Entry, error) {
	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Name: name, Size: info.Size(), Modified: info.ModTime()}
	if prev.Checksum != "" && prev.Size == entry.Size && prev.Modified.Equal(entry.Modified) {
		entry.Checksum = prev.Checksum
		return entry, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Entry{}, err
	}
	entry.Checksum = hex.EncodeToString(h.Sum(nil))
	return entry, nil
}

// Names returns the indexed template names, sorted.
func (l *Library) Names() []string {
	if l == nil {
		return []string{}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.entries))
	for name := range l.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns the indexed templates sorted by name.
func (l *Library) Entries() []Entry {
	if l == nil {
		return []Entry{}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (l *Library) Lookup(name string) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[name]
	return e, ok
}

// Read returns the bytes of an indexed template. Only names present in the
// index are served, so path components never reach the filesystem.
func (l *Library) Read(name string) ([]byte, error) {
	if _, ok := l.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return data, nil
}

func isTemplate(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(strings.ToLower(base), ".pptx") && !strings.HasPrefix(base, "~$")
}
