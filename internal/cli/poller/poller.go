// Package poller refreshes the unread notification count while a session
// is active.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/coinvest-dev/coinvest/internal/cli/notify"
	"github.com/coinvest-dev/coinvest/internal/cli/session"
)

// UnreadCounter fetches the unread count
type UnreadCounter interface {
	UnreadCount(ctx context.Context) (int, error)
}

// Sessions is the part of the session store the poller follows
type Sessions interface {
	State() session.State
	Subscribe(fn func(session.State)) (unsubscribe func())
}

// Poller polls the unread count on a schedule. It stops itself once the
// session becomes anonymous, so no request follows a logout.
type Poller struct {
	counter  UnreadCounter
	sessions Sessions
	toasts   *notify.Store
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger

	mu          sync.Mutex
	cron        *cron.Cron
	last        int
	stopped     bool
	unsubscribe func()
}

// New creates a poller. toasts may be nil.
func New(counter UnreadCounter, sessions Sessions, toasts *notify.Store, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		counter:  counter,
		sessions: sessions,
		toasts:   toasts,
		interval: interval,
		timeout:  10 * time.Second,
		log:      log.With().Str("component", "unread-poller").Logger(),
		last:     -1,
	}
}

// Start polls once and then on every interval
func (p *Poller) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", p.interval), p.Tick); err != nil {
		return fmt.Errorf("failed to schedule unread poller: %w", err)
	}

	p.mu.Lock()
	p.cron = c
	p.stopped = false
	p.unsubscribe = p.sessions.Subscribe(func(st session.State) {
		if !st.IsLoading && !st.IsAuthenticated {
			go p.Stop()
		}
	})
	p.mu.Unlock()

	c.Start()
	p.Tick()
	return nil
}

// Stop halts polling. It is safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	c := p.cron
	unsubscribe := p.unsubscribe
	p.cron = nil
	p.unsubscribe = nil
	p.stopped = true
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if c != nil {
		<-c.Stop().Done()
		p.log.Debug().Msg("Unread poller stopped")
	}
}

// Stopped reports whether polling has ended
func (p *Poller) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Last returns the most recent count, or -1 before the first success
func (p *Poller) Last() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Tick runs one poll
func (p *Poller) Tick() {
	if p.Stopped() {
		return
	}
	if !p.sessions.State().IsAuthenticated {
		p.markStopped()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	count, err := p.counter.UnreadCount(ctx)
	if err != nil {
		// a 401 has already ended the session through the auth-failure signal
		if !p.sessions.State().IsAuthenticated {
			p.markStopped()
			return
		}
		p.log.Warn().Err(err).Msg("Failed to fetch unread count")
		return
	}

	p.mu.Lock()
	prev := p.last
	p.last = count
	p.mu.Unlock()

	if count > prev && count > 0 && p.toasts != nil {
		p.toasts.Add(fmt.Sprintf("You have %d unread notification(s)", count), notify.Info, 0)
	}
}

func (p *Poller) markStopped() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}
