package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/hasib1010/Happylife-sub003/internal/pkg/env"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/feature"
)

// Manager runs periodic background tasks. Right now that is a single job,
// the feature expiration sweep; scheduling is deliberately in-process because
// the sweep is idempotent and safe to run from several replicas at once.
type Manager struct {
	sweeper     *feature.Sweeper
	sweepTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
}

// NewManager creates a background task manager.
func NewManager(sweeper *feature.Sweeper) *Manager {
	return &Manager{
		sweeper: sweeper,
		stopCh:  make(chan struct{}),
	}
}

// SweepInterval reads the configured sweep cadence. Zero disables the
// in-process scheduler entirely, for deployments that trigger sweeps
// externally via the operator endpoint.
func SweepInterval() time.Duration {
	minutes := env.GetEnvInt("FEATURE_SWEEP_INTERVAL_MINUTES", 5)
	if minutes < 0 {
		minutes = 5
	}
	return time.Duration(minutes) * time.Minute
}

// Start starts the background tasks. Safe to call twice.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	interval := SweepInterval()
	if interval == 0 {
		log.Info("[Jobs] In-process sweep disabled, relying on external trigger")
		return
	}

	// Recreate stop channel for each start cycle so the manager can be
	// restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true

	m.sweepTicker = time.NewTicker(interval)
	m.wg.Add(1)
	go m.sweepWorker()

	log.Infof("[Jobs] Started, sweeping expired feature grants every %s", interval)
}

// Stop stops the background tasks and waits for in-flight runs to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Jobs] Stopping background tasks...")
	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}
	close(m.stopCh)
	m.wg.Wait()
	m.running = false
	log.Info("[Jobs] Stopped")
}

func (m *Manager) sweepWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.sweepTicker.C:
			if _, err := m.sweeper.Sweep(context.Background(), time.Now()); err != nil {
				log.Errorf("[Jobs] Feature sweep failed: %v", err)
			}
		case <-m.stopCh:
			return
		}
	}
}
