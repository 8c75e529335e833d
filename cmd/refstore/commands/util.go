package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/refstore/internal/logger"
	"github.com/marmos91/refstore/internal/refs"
	"github.com/marmos91/refstore/internal/refs/filesbackend"
	"github.com/marmos91/refstore/internal/refs/kvbackend"
	"github.com/marmos91/refstore/pkg/config"
)

// openCoordinator is like openBackend but also wires a coordinator:
// when the primary backend is the files backend it doubles as its own
// auxiliary; otherwise a files backend rooted at cfg.FilesRoot is
// opened alongside it to receive split per-worktree/pseudoref updates.
func openCoordinator(ctx context.Context) (*refs.Coordinator, refs.Backend, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	primary, closePrimary, err := openBackend(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.Backend == "files" || cfg.Backend == "" {
		return refs.NewCoordinator(primary), primary, closePrimary, nil
	}

	aux := filesbackend.New(cfg.FilesRoot)
	if err := aux.InitDB(ctx); err != nil {
		closePrimary()
		return nil, nil, nil, err
	}
	closer := func() {
		aux.Close()
		closePrimary()
	}
	return refs.NewCoordinator(aux), primary, closer, nil
}

// openBackend loads configuration, initializes the selected backend,
// and returns it ready for use. Closers should be invoked by callers
// that hold a *filesbackend.Backend or *kvbackend.Backend directly;
// this helper returns the interface most commands need.
func openBackend(ctx context.Context) (refs.Backend, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	switch cfg.Backend {
	case "kv":
		b, err := kvbackend.Open(cfg.KVPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open kv backend: %w", err)
		}
		if err := b.InitDB(ctx); err != nil {
			b.Close()
			return nil, nil, err
		}
		return b, func() { b.Close() }, nil
	case "files", "":
		b := filesbackend.New(cfg.FilesRoot)
		if err := b.InitDB(ctx); err != nil {
			return nil, nil, err
		}
		return b, func() { b.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
