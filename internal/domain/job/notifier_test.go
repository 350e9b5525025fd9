package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWaiter struct {
	calls chan string
	err   error
}

func (s *stubWaiter) WaitForNotification(ctx context.Context, channel string) error {
	select {
	case s.calls <- channel:
	default:
	}

	if s.err != nil {
		return s.err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil
	}
}

func awaitCall(t *testing.T, calls <-chan string) string {
	t.Helper()
	select {
	case ch := <-calls:
		return ch
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected waiter to be invoked")
		return ""
	}
}

func TestNewNotifierRequiresWaiter(t *testing.T) {
	notifier, err := NewNotifier(NotifierOptions{})
	require.ErrorIs(t, err, ErrWaiterRequired)
	assert.Nil(t, notifier)
}

func TestNotifier_SubscribeReceivesNotifications(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan string, 8)}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)

	unsub, ch := notifier.Subscribe(JobAddedChannel)
	defer unsub()

	assert.Equal(t, JobAddedChannel, awaitCall(t, waiter.calls))

	select {
	case <-ch:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification to be delivered")
	}
}

func TestNotifier_UnsubscribeClosesChannel(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan string, 8)}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)

	unsub, ch := notifier.Subscribe(JobAddedChannel)
	awaitCall(t, waiter.calls)

	unsub()
	unsub()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected channel to close after unsubscribe")
	}
}

func TestNotifier_StopAllClosesChannels(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan string, 8), err: errors.New("boom")}
	notifier, err := NewNotifier(NotifierOptions{Waiter: waiter, Backoff: 5 * time.Millisecond})
	require.NoError(t, err)

	unsubA, chA := notifier.Subscribe(JobAddedChannel)
	unsubB, chB := notifier.Subscribe("other_channel")

	awaitCall(t, waiter.calls)
	awaitCall(t, waiter.calls)

	notifier.StopAll()

	for _, ch := range []<-chan struct{}{chA, chB} {
		require.Eventually(t, func() bool {
			select {
			case _, ok := <-ch:
				return !ok
			default:
				return false
			}
		}, time.Second, 5*time.Millisecond)
	}

	unsubA()
	unsubB()
}
