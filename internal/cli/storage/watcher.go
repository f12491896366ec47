package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Watcher detects keys changed by other processes by polling backend
// revisions. It is the storage change observer the session and theme
// stores rely on for cross-process sync.
type Watcher struct {
	bridge   *Bridge
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	seen   map[string]int64
	primed bool
	cron   *cron.Cron
}

// NewWatcher creates a watcher for bridge polling every interval. Start
// schedules with one-second resolution, so shorter intervals poll every 1s.
func NewWatcher(bridge *Bridge, interval time.Duration, log zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		bridge:   bridge,
		interval: interval,
		log:      log.With().Str("component", "storage-watcher").Logger(),
		seen:     make(map[string]int64),
	}
}

// Start records the current revisions and begins polling
func (w *Watcher) Start() error {
	w.Poll()

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", w.interval), w.Poll); err != nil {
		return fmt.Errorf("failed to schedule storage watcher: %w", err)
	}
	c.Start()

	w.mu.Lock()
	w.cron = c
	w.mu.Unlock()
	return nil
}

// Stop halts polling and waits for a running poll to finish
func (w *Watcher) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// Poll compares revisions with the last poll and notifies subscribers of
// every key whose latest write came from another instance. The first
// poll only records a baseline.
func (w *Watcher) Poll() {
	entries, err := w.bridge.backend.List("")
	if err != nil {
		w.log.Warn().Err(err).Msg("Storage poll failed")
		return
	}

	w.mu.Lock()
	var changed []string
	for _, e := range entries {
		prev, known := w.seen[e.Key]
		w.seen[e.Key] = e.Revision
		if !w.primed || (known && prev == e.Revision) {
			continue
		}
		if e.Writer == w.bridge.instanceID {
			continue
		}
		changed = append(changed, e.Key)
	}
	w.primed = true
	w.mu.Unlock()

	for _, key := range changed {
		w.log.Debug().Str("key", key).Msg("Key changed by another process")
		w.bridge.notifyExternal(key)
	}
}
