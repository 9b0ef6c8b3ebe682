package provider

import "testing"

func TestListenersOnOffEmit(t *testing.T) {
	t.Parallel()

	var l Listeners
	calls := 0
	id := l.On(EventNetworkChanged, func() { calls++ })
	l.On(EventAccountsChanged, func() { t.Fatalf("wrong event delivered") })

	l.Emit(EventNetworkChanged)
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}

	l.Off(EventNetworkChanged, id)
	l.Off(EventNetworkChanged, id)
	l.Emit(EventNetworkChanged)
	if calls != 1 {
		t.Fatalf("calls=%d after Off, want 1", calls)
	}
	if got := l.Count(EventAccountsChanged); got != 1 {
		t.Fatalf("accounts handlers=%d, want 1", got)
	}

	l.Clear()
	if got := l.Count(EventAccountsChanged); got != 0 {
		t.Fatalf("handlers after Clear=%d, want 0", got)
	}
}

func TestListenersHandlerMayUnsubscribe(t *testing.T) {
	t.Parallel()

	var l Listeners
	var id SubscriptionID
	id = l.On(EventAccountsChanged, func() { l.Off(EventAccountsChanged, id) })

	l.Emit(EventAccountsChanged)
	if got := l.Count(EventAccountsChanged); got != 0 {
		t.Fatalf("handlers=%d, want 0", got)
	}
}
