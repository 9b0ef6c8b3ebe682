// Package store holds the shared, observable session state read by the
// dashboard surface and written by the reconciler runtime.
//
// The store is passed around as a handle rather than accessed globally.
// Readers use Snapshot or Select; writers use the setters; observers
// Subscribe to be told when anything changed.
package store

import (
	"sync"

	"github.com/bhandras/zkdash/internal/wallet"
)

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	// Version increases on every write.
	Version uint64

	Error           string
	AccessModalOpen bool
	Hint            string

	ProviderAttached bool
	NetworkVersion   string
	Address          string
	Phase            string

	WalletKind wallet.Kind
	Session    *wallet.Session
	Balances   []wallet.Balance
}

// Store is the shared observable state container.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot

	subsMu sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// New returns an empty Store.
func New() *Store {
	return &Store{subs: make(map[int]chan struct{})}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Balances = cloneBalances(s.snap.Balances)
	return out
}

// Select projects the current state through fn.
func Select[T any](s *Store, fn func(Snapshot) T) T {
	return fn(s.Snapshot())
}

// Subscribe returns a channel that receives a value after each write. Bursts
// of writes coalesce into a single notification. The returned func cancels
// the subscription.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

// Update applies fn to the state under the write lock and notifies
// subscribers.
func (s *Store) Update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	s.snap.Version++
	s.mu.Unlock()

	s.notify()
}

// SetError sets the blocking error message. Empty clears it.
func (s *Store) SetError(msg string) {
	s.Update(func(snap *Snapshot) { snap.Error = msg })
}

// SetAccessModal opens or closes the re-authentication dialog.
func (s *Store) SetAccessModal(open bool) {
	s.Update(func(snap *Snapshot) { snap.AccessModalOpen = open })
}

// SetHint sets the transient hint message.
func (s *Store) SetHint(msg string) {
	s.Update(func(snap *Snapshot) { snap.Hint = msg })
}

// SetWalletKind sets the active wallet kind.
func (s *Store) SetWalletKind(kind wallet.Kind) {
	s.Update(func(snap *Snapshot) { snap.WalletKind = kind })
}

// SetSession sets the active session. Nil clears it.
func (s *Store) SetSession(session *wallet.Session) {
	s.Update(func(snap *Snapshot) { snap.Session = session })
}

// SetBalances replaces the cached balances. Nil clears them.
func (s *Store) SetBalances(balances []wallet.Balance) {
	cp := cloneBalances(balances)
	s.Update(func(snap *Snapshot) { snap.Balances = cp })
}

// Connection is the provider-derived part of the state.
type Connection struct {
	ProviderAttached bool
	NetworkVersion   string
	Address          string
	Phase            string
}

// SetConnection replaces the provider-derived fields.
func (s *Store) SetConnection(c Connection) {
	s.Update(func(snap *Snapshot) {
		snap.ProviderAttached = c.ProviderAttached
		snap.NetworkVersion = c.NetworkVersion
		snap.Address = c.Address
		snap.Phase = c.Phase
	})
}

func (s *Store) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func cloneBalances(in []wallet.Balance) []wallet.Balance {
	if in == nil {
		return nil
	}
	out := make([]wallet.Balance, len(in))
	copy(out, in)
	return out
}
