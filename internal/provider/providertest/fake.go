// Package providertest provides an in-memory Provider for tests.
package providertest

import (
	"sync"

	"github.com/bhandras/zkdash/internal/provider"
)

// Fake is a scriptable Provider. Mutators that model user actions in the
// wallet UI fire the matching notification; the Set* variants change state
// silently, modelling a missed notification.
type Fake struct {
	provider.Listeners

	mu                  sync.Mutex
	selected            string
	network             string
	autoRefresh         bool
	autoRefreshDisables int
}

var _ provider.Provider = (*Fake)(nil)

// NewFake returns a Fake with the given account and network.
func NewFake(address, network string) *Fake {
	return &Fake{selected: address, network: network, autoRefresh: true}
}

// SelectedAddress implements provider.Provider.
func (f *Fake) SelectedAddress() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected
}

// NetworkVersion implements provider.Provider.
func (f *Fake) NetworkVersion() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.network
}

// SetAutoRefreshOnNetworkChange implements provider.Provider.
func (f *Fake) SetAutoRefreshOnNetworkChange(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoRefresh = enabled
	if !enabled {
		f.autoRefreshDisables++
	}
}

// AutoRefresh reports the current auto-refresh flag.
func (f *Fake) AutoRefresh() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.autoRefresh
}

// AutoRefreshDisables counts calls that disabled auto-refresh.
func (f *Fake) AutoRefreshDisables() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.autoRefreshDisables
}

// SwitchAccount selects address and fires accountsChanged.
func (f *Fake) SwitchAccount(address string) {
	f.SetSelectedAddress(address)
	f.Emit(provider.EventAccountsChanged)
}

// SwitchNetwork selects network and fires networkChanged.
func (f *Fake) SwitchNetwork(network string) {
	f.SetNetwork(network)
	f.Emit(provider.EventNetworkChanged)
}

// SetSelectedAddress changes the account without notifying.
func (f *Fake) SetSelectedAddress(address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = address
}

// SetNetwork changes the network without notifying.
func (f *Fake) SetNetwork(network string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.network = network
}
