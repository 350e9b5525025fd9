package job

import (
	"context"
	"errors"
	"sync"
	"time"
)

// JobAddedChannel is the Postgres NOTIFY channel raised when a job becomes runnable.
const JobAddedChannel = "queuectl_job_added"

// ErrWaiterRequired indicates a notifier cannot be constructed without a waiter.
var ErrWaiterRequired = errors.New("notifier waiter is required")

// Waiter blocks until a notification arrives on a channel or ctx ends.
type Waiter interface {
	WaitForNotification(ctx context.Context, channel string) error
}

// Notifier fans wake-up signals out to idle workers so they skip the rest of their poll sleep.
type Notifier interface {
	Subscribe(channel string) (func(), <-chan struct{})
	StopAll()
}

// NotifierOptions configure DefaultNotifier.
type NotifierOptions struct {
	Waiter Waiter
	// WaitWindow bounds a single LISTEN wait; the loop re-arms afterwards.
	WaitWindow time.Duration
	// Backoff is the pause after a waiter error.
	Backoff time.Duration
}

type channelState struct {
	cancel context.CancelFunc
	subs   map[chan struct{}]struct{}
}

// DefaultNotifier runs one listener goroutine per channel with at least one subscriber.
type DefaultNotifier struct {
	waiter     Waiter
	waitWindow time.Duration
	backoff    time.Duration

	mu       sync.Mutex
	channels map[string]*channelState
}

// NewNotifier constructs a DefaultNotifier.
func NewNotifier(opts NotifierOptions) (*DefaultNotifier, error) {
	if opts.Waiter == nil {
		return nil, ErrWaiterRequired
	}

	n := &DefaultNotifier{
		waiter:     opts.Waiter,
		waitWindow: opts.WaitWindow,
		backoff:    opts.Backoff,
		channels:   make(map[string]*channelState),
	}
	if n.waitWindow <= 0 {
		n.waitWindow = time.Minute
	}
	if n.backoff <= 0 {
		n.backoff = 250 * time.Millisecond
	}
	return n, nil
}

// Subscribe registers for wake-ups on channel. The returned func unsubscribes and
// closes the signal channel; calling it more than once is safe.
func (n *DefaultNotifier) Subscribe(channel string) (func(), <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	state, ok := n.channels[channel]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		state = &channelState{cancel: cancel, subs: make(map[chan struct{}]struct{})}
		n.channels[channel] = state
		go n.listen(ctx, channel)
	}

	sig := make(chan struct{}, 1)
	state.subs[sig] = struct{}{}

	return func() { n.unsubscribe(channel, sig) }, sig
}

func (n *DefaultNotifier) unsubscribe(channel string, sig chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	state, ok := n.channels[channel]
	if !ok {
		return
	}
	if _, ok := state.subs[sig]; !ok {
		return
	}
	delete(state.subs, sig)
	drainAndClose(sig)
	if len(state.subs) == 0 {
		state.cancel()
		delete(n.channels, channel)
	}
}

// StopAll cancels every listener and closes every subscriber channel.
func (n *DefaultNotifier) StopAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for channel, state := range n.channels {
		state.cancel()
		for sig := range state.subs {
			drainAndClose(sig)
		}
		delete(n.channels, channel)
	}
}

func (n *DefaultNotifier) listen(ctx context.Context, channel string) {
	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, n.waitWindow)
		err := n.waiter.WaitForNotification(waitCtx, channel)
		cancel()

		// A timed-out wait still wakes subscribers; a spurious poll is harmless.
		n.broadcast(channel)

		if err != nil && ctx.Err() == nil {
			timer := time.NewTimer(n.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

func (n *DefaultNotifier) broadcast(channel string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	state, ok := n.channels[channel]
	if !ok {
		return
	}
	for sig := range state.subs {
		select {
		case sig <- struct{}{}:
		default:
		}
	}
}

// drainAndClose empties any buffered signal before closing so receivers see the close immediately.
func drainAndClose(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ Notifier = (*DefaultNotifier)(nil)
