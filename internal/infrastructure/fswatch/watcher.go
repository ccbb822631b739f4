package fswatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"WeatherAlertWatch/internal/ports"
)

// ErrWatchClosed is returned when the underlying watcher stops delivering events.
var ErrWatchClosed = errors.New("directory watch closed")

// Watcher reports files with one extension created in a directory.
type Watcher struct {
	dir string
	ext string
}

var _ ports.Watcher = (*Watcher)(nil)

// New watches dir for files ending in ext (with or without the leading dot).
func New(dir, ext string) *Watcher {
	ext = strings.TrimPrefix(ext, ".")
	return &Watcher{dir: dir, ext: ext}
}

// Matches reports whether path carries the watched extension.
func (w *Watcher) Matches(path string) bool {
	return strings.EqualFold(filepath.Ext(path), "."+w.ext)
}

// Existing lists matching files already in the directory, sorted by name.
func (w *Watcher) Existing() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", w.dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !w.Matches(e.Name()) {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(w.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", e.Name(), err)
		}
		out = append(out, abs)
	}
	sort.Strings(out)
	return out, nil
}

// Watch registers the directory, delivers the files already present, then delivers created
// files until ctx is done (nil) or watching fails (error). A file both listed at startup and
// reported by a create event queued during the listing is delivered once.
func (w *Watcher) Watch(ctx context.Context, onFile func(path string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer fw.Close()

	dir, err := filepath.Abs(w.dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.dir, err)
	}
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	existing, err := w.Existing()
	if err != nil {
		return err
	}
	listed := newListedFiles()
	for _, path := range existing {
		if ctx.Err() != nil {
			return nil
		}
		listed.add(path)
		onFile(path)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return ErrWatchClosed
			}
			if filepath.Clean(ev.Name) == dir && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
				return fmt.Errorf("watched directory %s disappeared", dir)
			}
			if ev.Has(fsnotify.Create) && w.Matches(ev.Name) && !listed.seen(ev.Name) {
				onFile(ev.Name)
			}
		case werr, ok := <-fw.Errors:
			if !ok {
				return ErrWatchClosed
			}
			return fmt.Errorf("watch %s: %w", dir, werr)
		}
	}
}

// listedFiles remembers the files delivered from the startup listing by identity, so a later
// file reusing the same name is still delivered.
type listedFiles map[string]os.FileInfo

func newListedFiles() listedFiles {
	return listedFiles{}
}

func (l listedFiles) add(path string) {
	if info, err := os.Stat(path); err == nil {
		l[path] = info
	}
}

// seen reports whether path is the very file already delivered; the entry is consumed.
func (l listedFiles) seen(path string) bool {
	info, ok := l[path]
	if !ok {
		return false
	}
	delete(l, path)
	current, err := os.Stat(path)
	if err != nil {
		// Already processed and renamed away.
		return true
	}
	return os.SameFile(info, current)
}
