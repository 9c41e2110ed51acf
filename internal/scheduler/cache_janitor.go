package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPurgeSchedule runs the janitor every five minutes.
const DefaultPurgeSchedule = "@every 5m"

var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Purger is anything holding expirable entries.
type Purger interface {
	Purge() int
}

// ValidateSchedule checks a standard 5-field cron expression or an @-descriptor.
func ValidateSchedule(schedule string) error {
	_, err := scheduleParser.Parse(schedule)
	return err
}

// CacheJanitor periodically drops expired cache entries.
type CacheJanitor struct {
	schedule string
	targets  map[string]Purger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	lastRun    time.Time
	lastPurged int
}

// NewCacheJanitor creates a janitor for the named caches.
func NewCacheJanitor(schedule string, targets map[string]Purger) *CacheJanitor {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	return &CacheJanitor{
		schedule: schedule,
		targets:  targets,
		cron:     cron.New(cron.WithParser(scheduleParser)),
	}
}

// Start schedules the purge job. The janitor stops when ctx is cancelled.
func (j *CacheJanitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.isRunning {
		return nil
	}

	if err := ValidateSchedule(j.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", j.schedule, err)
	}

	entryID, err := j.cron.AddFunc(j.schedule, func() {
		j.RunNow()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule purge job: %w", err)
	}
	j.entryID = entryID

	j.cron.Start()
	j.isRunning = true
	log.Printf("Cache janitor: started with schedule '%s'", j.schedule)

	go func() {
		<-ctx.Done()
		j.Stop()
	}()

	return nil
}

// Stop waits for a running purge to finish.
func (j *CacheJanitor) Stop() {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return
	}
	j.isRunning = false
	entryID := j.entryID
	j.mu.Unlock()

	// the lock is released first: a purge in flight takes it to record its result
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	j.cron.Remove(entryID)

	log.Printf("Cache janitor: stopped")
}

// RunNow purges every target and returns the number of removed entries.
func (j *CacheJanitor) RunNow() int {
	names := make([]string, 0, len(j.targets))
	for name := range j.targets {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		n := j.targets[name].Purge()
		if n > 0 {
			log.Printf("Cache janitor: purged %d expired entries from %s", n, name)
		}
		total += n
	}

	j.mu.Lock()
	j.lastRun = time.Now()
	j.lastPurged = total
	j.mu.Unlock()
	return total
}

// IsRunning returns whether the schedule is active.
func (j *CacheJanitor) IsRunning() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.isRunning
}

// GetNextRunTime returns when the next purge will occur.
func (j *CacheJanitor) GetNextRunTime() *time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if !j.isRunning {
		return nil
	}
	for _, entry := range j.cron.Entries() {
		if entry.ID == j.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}
