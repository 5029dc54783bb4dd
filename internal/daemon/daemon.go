package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultRestartDelay is how long a crashed daemon waits before it runs again.
const DefaultRestartDelay = 2 * time.Second

// DaemonFunc represents the work a daemon does. Returning nil means the
// daemon is done; returning an error gets it restarted.
type DaemonFunc func(ctx context.Context, name string) error

// DaemonManager supervises multiple daemons.
type DaemonManager struct {
	logger       *slog.Logger
	daemons      map[string]DaemonFunc
	restartDelay time.Duration
	wg           sync.WaitGroup
}

func NewDaemonManager(logger *slog.Logger, restartDelay time.Duration) *DaemonManager {
	if restartDelay <= 0 {
		restartDelay = DefaultRestartDelay
	}
	return &DaemonManager{
		logger:       logger,
		daemons:      make(map[string]DaemonFunc),
		restartDelay: restartDelay,
	}
}

// Add registers a daemon by name. It must be called before Start.
func (m *DaemonManager) Add(name string, fn DaemonFunc) {
	m.daemons[name] = fn
}

// Start runs all daemons and restarts them if they crash.
func (m *DaemonManager) Start(ctx context.Context) {
	for name, fn := range m.daemons {
		m.wg.Add(1)
		go m.runDaemon(ctx, name, fn)
	}
}

// Wait blocks until all daemons have stopped.
func (m *DaemonManager) Wait() {
	m.wg.Wait()
}

// runDaemon supervises a single daemon, restarting on error.
func (m *DaemonManager) runDaemon(ctx context.Context, name string, fn DaemonFunc) {
	defer m.wg.Done()

	for {
		if ctx.Err() != nil {
			m.logger.Info("Daemon received shutdown signal", "daemon", name)
			return
		}

		err := fn(ctx, name)
		if err == nil {
			m.logger.Info("Daemon exited cleanly", "daemon", name)
			return
		}

		m.logger.Error("Daemon crashed, restarting", "daemon", name, "error", err, "delay", m.restartDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.restartDelay):
		}
	}
}
