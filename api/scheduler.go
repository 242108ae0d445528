/*
scheduler.go - Dashboard cache warmer

PURPOSE:
  Periodically refreshes the dashboards that were recently requested, so a
  user opening the dashboard after the TTL still gets a fast, fresh answer.

DESIGN:
  - gocron runs the warm-up job at a fixed interval, singleton mode so a slow
    run is never overlapped by the next one
  - The set of keys is whatever cache.Dashboard.Recent reports; the recent
    set is cleared after each run, so a key is warmed only while it keeps
    being requested
  - A failed refresh is logged and skipped; the cache keeps serving the
    stale entry

CONFIGURATION:
  - Interval: How often to warm (default: 4 minutes, under the default TTL)
  - Enabled:  Whether the warmer runs at all

USAGE:
  warmer := NewCacheWarmer(dash, logger)
  warmer.Start()
  // ... later
  warmer.Stop()

SEE ALSO:
  - cache/dashboard.go: Refresh and Recent
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"github.com/warp/resourcing-engine/cache"
)

// DefaultWarmInterval refreshes entries before the default TTL expires.
const DefaultWarmInterval = 4 * time.Minute

// Refresher is the part of the dashboard cache the warmer drives.
type Refresher interface {
	Recent() []cache.Key
	ForgetRecent()
	Refresh(ctx context.Context, key cache.Key) (*cache.Bundle, error)
}

// CacheWarmer refreshes recently requested dashboards in the background.
type CacheWarmer struct {
	Cache    Refresher
	Interval time.Duration
	Enabled  bool
	// Timeout bounds one refresh.
	Timeout time.Duration

	logger    logrus.FieldLogger
	scheduler *gocron.Scheduler
	mu        sync.Mutex
}

// NewCacheWarmer creates a warmer with the default interval.
func NewCacheWarmer(c Refresher, logger logrus.FieldLogger) *CacheWarmer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CacheWarmer{
		Cache:    c,
		Interval: DefaultWarmInterval,
		Enabled:  true,
		Timeout:  30 * time.Second,
		logger:   logger,
	}
}

// Start begins the warmer.
func (cw *CacheWarmer) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.Enabled || cw.Interval <= 0 {
		cw.logger.Info("[Scheduler] Cache warmer disabled, not starting")
		return nil
	}
	if cw.scheduler != nil {
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	// The first run happens one interval from now; nothing is recent at boot.
	if _, err := s.Every(cw.Interval).WaitForSchedule().Do(cw.WarmOnce); err != nil {
		return err
	}
	s.StartAsync()
	cw.scheduler = s

	cw.logger.WithField("interval", cw.Interval.String()).Info("[Scheduler] Cache warmer started")
	return nil
}

// Stop stops the warmer and waits for a running job to finish.
func (cw *CacheWarmer) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.scheduler != nil {
		cw.scheduler.Stop()
		cw.scheduler = nil
		cw.logger.Info("[Scheduler] Cache warmer stopped")
	}
}

// WarmOnce refreshes every recent key and returns how many succeeded.
func (cw *CacheWarmer) WarmOnce() int {
	keys := cw.Cache.Recent()
	cw.Cache.ForgetRecent()
	if len(keys) == 0 {
		return 0
	}

	ok := 0
	for _, key := range keys {
		ctx, cancel := context.WithTimeout(context.Background(), cw.Timeout)
		_, err := cw.Cache.Refresh(ctx, key)
		cancel()
		if err != nil {
			cw.logger.WithField("key", key.String()).WithError(err).Warn("[Scheduler] Cache warm-up failed")
			continue
		}
		ok++
	}

	cw.logger.WithFields(logrus.Fields{
		"keys":      len(keys),
		"refreshed": ok,
	}).Info("[Scheduler] Cache warm-up complete")
	return ok
}
