/*
sweep.go - Automated status maintenance sweep

PURPOSE:
  Periodically recomputes every policy's status so Active policies lapse
  when installments go overdue even if nobody touches them. Payment and
  cancellation update status inline; the sweep catches pure clock movement.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each tick runs one full sweep over all policies
  - Cancelled policies are skipped by the engine's short-circuit
  - Sweep is idempotent, so overlapping runs after a restart are harmless

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewStatusSweeper(handler)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: TriggerSweep endpoint (manual sweep)
  - policy/lifecycle.go: Service.SweepStatuses
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/insurecrm/policy-engine/domain"
	"github.com/insurecrm/policy-engine/metrics"
)

// StatusSweeper handles automated policy status maintenance.
type StatusSweeper struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStatusSweeper creates a new sweeper.
func NewStatusSweeper(handler *Handler) *StatusSweeper {
	return &StatusSweeper{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (ss *StatusSweeper) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)

	go ss.run()

	log.Printf("[Sweeper] Started with check interval: %v", ss.CheckInterval)
}

// Stop stops the sweeper.
func (ss *StatusSweeper) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (ss *StatusSweeper) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.sweep()

	for {
		select {
		case <-ss.ticker.C:
			ss.sweep()
		case <-ss.stop:
			return
		}
	}
}

func (ss *StatusSweeper) sweep() {
	ctx := context.Background()
	today := domain.Today()

	changed, err := ss.Handler.Policies.SweepStatuses(ctx, today)
	if err != nil {
		log.Printf("[Sweeper] Sweep failed: %v", err)
		return
	}

	metrics.StatusSweeps.Inc()
	metrics.StatusTransitions.Add(float64(changed))

	if changed > 0 {
		log.Printf("[Sweeper] Sweep as of %s: %d status change(s)", today, changed)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (ss *StatusSweeper) RunNow() {
	ss.sweep()
}

// GetNextRunTime returns when the next scheduled sweep will occur.
func (ss *StatusSweeper) GetNextRunTime() time.Time {
	return time.Now().Add(ss.CheckInterval)
}
