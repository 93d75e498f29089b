package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/aresapp/ares-server/internal/config"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/sse"
	"github.com/aresapp/ares-server/internal/store/sqlite"
	"github.com/aresapp/ares-server/internal/tasks"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the catalog store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite catalog.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.DatabasePath(), log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Catalog initialized", "path", cfg.DatabasePath())

	return &StoreHandle{Store: db}, nil
}

// ProvideTaskTracker provides the task tracker. Task changes are broadcast
// over SSE.
func ProvideTaskTracker(i do.Injector) (*tasks.Tracker, error) {
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return tasks.NewTracker(sseHandle.Manager, log.Logger), nil
}
