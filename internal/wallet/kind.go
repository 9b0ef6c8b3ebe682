// Package wallet defines the wallet kinds zkdash supports, the zk-wallet
// session handle, and the builder that signs a user in and produces a session.
package wallet

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags which wallet backend is in use.
type Kind string

const (
	// KindMetamask is the injected browser-extension wallet. It is the only
	// kind subject to network guarding and drift detection.
	KindMetamask Kind = "Metamask"
	// KindLedger is a hardware wallet.
	KindLedger Kind = "Ledger"
	// KindWalletConnect is a remote wallet bridged over WalletConnect.
	KindWalletConnect Kind = "WalletConnect"
	// KindTrezor is a hardware wallet.
	KindTrezor Kind = "Trezor"
)

// ErrUnknownKind is returned when a kind string does not name a supported
// wallet backend.
var ErrUnknownKind = errors.New("unknown wallet kind")

var knownKinds = []Kind{KindMetamask, KindLedger, KindWalletConnect, KindTrezor}

// ParseKind maps a raw string (case-insensitive) to a known Kind.
func ParseKind(raw string) (Kind, error) {
	raw = strings.TrimSpace(raw)
	for _, k := range knownKinds {
		if strings.EqualFold(raw, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// Valid reports whether k names a supported wallet backend.
func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

// IsExtension reports whether k is the injected browser-extension kind.
func (k Kind) IsExtension() bool {
	return strings.EqualFold(string(k), string(KindMetamask))
}
