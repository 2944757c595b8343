package reaper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/bowerhall/reconmem/internal/config"
	"github.com/bowerhall/reconmem/internal/logger"
)

// Store is the part of the database the reaper needs.
type Store interface {
	ReapExpired() (int, error)
}

// Reaper deletes expired entities on a cron schedule
type Reaper struct {
	store    Store
	schedule string

	mu      sync.Mutex
	lastRun time.Time
	reaped  int
}

// New validates schedule and creates a Reaper
func New(store Store, schedule string) (*Reaper, error) {
	if _, err := config.ScheduleParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule: %w", err)
	}

	return &Reaper{store: store, schedule: schedule}, nil
}

// Run reaps once immediately, then on every tick of the schedule until ctx is done
func (r *Reaper) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(config.ScheduleParser))
	if _, err := c.AddFunc(r.schedule, func() { r.ReapOnce() }); err != nil {
		return fmt.Errorf("schedule reaper: %w", err)
	}

	r.ReapOnce()
	c.Start()
	logger.Info("reaper started", "schedule", r.schedule)

	<-ctx.Done()

	// wait for a running reap to finish
	<-c.Stop().Done()
	logger.Debug("reaper stopping")
	return nil
}

// ReapOnce runs a single reap cycle and returns how many entities were deleted
func (r *Reaper) ReapOnce() (int, error) {
	runID := uuid.NewString()
	start := time.Now()

	n, err := r.store.ReapExpired()

	r.mu.Lock()
	r.lastRun = start
	r.reaped += n
	r.mu.Unlock()

	if err != nil {
		logger.Error("reap failed", "run", runID, "reaped", n, "error", err)
		return n, err
	}

	if n > 0 {
		logger.Info("expired entities reaped", "run", runID, "count", n, "took", time.Since(start))
	} else {
		logger.Debug("nothing to reap", "run", runID)
	}
	return n, nil
}

// Stats reports when the reaper last ran and how many entities it deleted in total
func (r *Reaper) Stats() (time.Time, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.reaped
}
