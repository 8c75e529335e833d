// Package filesbackend implements the reference store's filesystem
// engine: loose ref files, a packed-refs catalog, lockfile-based CAS,
// and per-ref reflog files.
package filesbackend

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/refstore/internal/logger"
	"github.com/marmos91/refstore/internal/refs"
)

// Backend is the filesystem-backed reference store engine (C6).
//
// Loose refs live at "<root>/<refname>"; the packed catalog lives at
// "<root>/packed-refs"; reflogs live at "<root>/logs/<refname>".
type Backend struct {
	root string

	mu         sync.RWMutex // guards the packed-refs in-memory cache
	packed     *packedRefs
	packedRead bool

	watcher *fsnotify.Watcher // invalidates the packed-refs cache on external writes
}

// New creates a files backend rooted at root. The caller is responsible
// for calling InitDB before first use and Close when finished watching
// for external packed-refs mutation.
func New(root string) *Backend {
	return &Backend{root: root}
}

func (b *Backend) Name() string { return "files" }

// InitDB creates the refs/logs directory tree and starts watching
// packed-refs for external mutation. Idempotent.
func (b *Backend) InitDB(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(b.root, "logs"), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(b.root, "refs"), 0o755); err != nil {
		return err
	}

	if b.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err == nil {
			_ = w.Add(b.root)
			b.watcher = w
			go b.watchPackedRefs(ctx)
		} else {
			logger.WarnCtx(ctx, "fsnotify watcher unavailable, packed-refs cache will not auto-invalidate", logger.Err(err))
		}
	}
	return nil
}

// Close stops the packed-refs watcher.
func (b *Backend) Close() error {
	if b.watcher == nil {
		return nil
	}
	return b.watcher.Close()
}

func (b *Backend) watchPackedRefs(ctx context.Context) {
	target := b.packedRefsPath()
	for {
		select {
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if event.Name == target {
				b.invalidatePackedCache()
				logger.DebugCtx(ctx, "packed-refs changed externally, cache invalidated", logger.Path(target))
			}
		case _, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (b *Backend) invalidatePackedCache() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.packed = nil
	b.packedRead = false
}

func (b *Backend) loosePath(name string) string {
	return filepath.Join(b.root, name)
}

func (b *Backend) lockPath(name string) string {
	return b.loosePath(name) + ".lock"
}

func (b *Backend) packedRefsPath() string {
	return filepath.Join(b.root, "packed-refs")
}

func (b *Backend) reflogPath(name string) string {
	return filepath.Join(b.root, "logs", name)
}

var _ refs.Backend = (*Backend)(nil)
