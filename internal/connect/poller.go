package connect

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultCheckInterval = 5 * time.Second
	defaultRedirectDelay = 2 * time.Second
)

// StatusFunc performs one connection check and reports whether the link is up.
type StatusFunc func(ctx context.Context, instanceName string) (bool, error)

// Poller drives a connect view's status loop. At most one check is in flight
// at a time; a tick that lands while a check is outstanding is skipped. The
// poller never times out on its own — it runs until the link comes up or the
// view is torn down. A separate 1-second tick feeds the elapsed-time display
// and has no bearing on correctness.
type Poller struct {
	// Check is required. It should not return an error for a provider that is
	// merely not connected yet; errors are logged and polling continues.
	Check StatusFunc

	// Interval between status checks. Defaults to 5s.
	Interval time.Duration
	// RedirectDelay between the connected notification and OnRedirect.
	// Defaults to 2s.
	RedirectDelay time.Duration

	// OnConnected fires once when the link comes up.
	OnConnected func()
	// OnElapsed fires every second with the seconds spent waiting.
	OnElapsed func(seconds int)
	// OnRedirect fires RedirectDelay after OnConnected, unless the poller was
	// stopped first.
	OnRedirect func()

	Logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type checkResult struct {
	connected bool
	err       error
}

// Start begins polling for instanceName. A second Start while running is a
// no-op. Cancelling ctx has the same effect as Stop.
func (p *Poller) Start(ctx context.Context, instanceName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	if p.Interval <= 0 {
		p.Interval = defaultCheckInterval
	}
	if p.RedirectDelay <= 0 {
		p.RedirectDelay = defaultRedirectDelay
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(runCtx, instanceName, p.done)
}

// Stop cancels both the status-check and elapsed-time timers and waits for
// the loop to exit. An in-flight check is not aborted, but its result is
// discarded: no callback fires after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *Poller) run(ctx context.Context, instanceName string, done chan struct{}) {
	defer close(done)

	checks := time.NewTicker(p.Interval)
	defer checks.Stop()
	elapsed := time.NewTicker(time.Second)
	defer elapsed.Stop()

	results := make(chan checkResult, 1)
	inFlight := false
	seconds := 0

	for {
		select {
		case <-ctx.Done():
			return

		case <-elapsed.C:
			seconds++
			if p.OnElapsed != nil {
				p.OnElapsed(seconds)
			}

		case <-checks.C:
			if inFlight {
				continue
			}
			inFlight = true
			go func() {
				connected, err := p.Check(ctx, instanceName)
				select {
				case results <- checkResult{connected: connected, err: err}:
				case <-ctx.Done():
				}
			}()

		case res := <-results:
			inFlight = false
			if res.err != nil {
				p.Logger.Warn("connection check failed", "instance", instanceName, "error", res.err)
				continue
			}
			if !res.connected {
				continue
			}
			if p.OnConnected != nil {
				p.OnConnected()
			}
			redirect := time.NewTimer(p.RedirectDelay)
			defer redirect.Stop()
			select {
			case <-redirect.C:
				if p.OnRedirect != nil {
					p.OnRedirect()
				}
			case <-ctx.Done():
			}
			return
		}
	}
}
