// Package provider describes the injected wallet provider zkdash reconciles
// against: its selected account, its network, and its change notifications.
package provider

import "sync"

// Event names a provider change notification.
type Event string

const (
	// EventNetworkChanged fires when the provider switches networks.
	EventNetworkChanged Event = "networkChanged"
	// EventAccountsChanged fires when the provider's selected account changes.
	EventAccountsChanged Event = "accountsChanged"
)

// Handler is invoked on a provider notification. Handlers read the new
// values back through the Provider.
type Handler func()

// SubscriptionID identifies a registered handler.
type SubscriptionID uint64

// Provider is the external, read-only view of the user's wallet.
type Provider interface {
	// SelectedAddress returns the active account, or "" when none.
	SelectedAddress() string
	// NetworkVersion returns the network identifier.
	NetworkVersion() string
	// On registers h for event and returns its subscription.
	On(event Event, h Handler) SubscriptionID
	// Off removes a subscription. Unknown ids are ignored.
	Off(event Event, id SubscriptionID)
	// SetAutoRefreshOnNetworkChange toggles the provider's own reset on
	// network change. Providers enable it by default.
	SetAutoRefreshOnNetworkChange(enabled bool)
}

// Listeners is a handler registry Provider implementations can embed.
type Listeners struct {
	mu       sync.Mutex
	next     SubscriptionID
	handlers map[Event]map[SubscriptionID]Handler
}

// On registers h for event.
func (l *Listeners) On(event Event, h Handler) SubscriptionID {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handlers == nil {
		l.handlers = make(map[Event]map[SubscriptionID]Handler)
	}
	if l.handlers[event] == nil {
		l.handlers[event] = make(map[SubscriptionID]Handler)
	}
	l.next++
	l.handlers[event][l.next] = h
	return l.next
}

// Off removes a subscription.
func (l *Listeners) Off(event Event, id SubscriptionID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handlers[event], id)
}

// Count returns the number of handlers registered for event.
func (l *Listeners) Count(event Event) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handlers[event])
}

// Clear drops every handler.
func (l *Listeners) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = nil
}

// Emit invokes every handler for event outside the registry lock.
func (l *Listeners) Emit(event Event) {
	l.mu.Lock()
	hs := make([]Handler, 0, len(l.handlers[event]))
	for _, h := range l.handlers[event] {
		hs = append(hs, h)
	}
	l.mu.Unlock()

	for _, h := range hs {
		h()
	}
}
