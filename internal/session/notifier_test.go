package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifier_SubscribeNotifyUnsubscribe(t *testing.T) {
	t.Parallel()

	n := NewNotifier()
	var calls []string

	unA := n.Subscribe(func() { calls = append(calls, "a") })
	unB := n.Subscribe(func() { calls = append(calls, "b") })
	require.Equal(t, 2, n.Len())

	n.Notify()
	require.Equal(t, []string{"a", "b"}, calls)

	unA()
	unA()
	n.Notify()
	require.Equal(t, []string{"a", "b", "b"}, calls)

	unB()
	require.Equal(t, 0, n.Len())
	n.Notify()
	require.Len(t, calls, 3)
}

func TestNotifier_UnsubscribeDuringNotify(t *testing.T) {
	t.Parallel()

	n := NewNotifier()
	count := 0
	var un func()
	un = n.Subscribe(func() {
		count++
		un()
	})
	n.Notify()
	n.Notify()
	require.Equal(t, 1, count)
}
