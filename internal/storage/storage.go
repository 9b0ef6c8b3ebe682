// Package storage provides the durable small-string storage used to remember
// session metadata (such as the chosen wallet kind) across reconnects.
package storage

// KeyWalletName is the key the chosen wallet kind is stored under.
const KeyWalletName = "walletName"

// Store is a small string key-value store.
type Store interface {
	SetItem(key, value string) error
	// GetItem returns ok=false when key is absent.
	GetItem(key string) (value string, ok bool, err error)
	RemoveItem(key string) error
}
