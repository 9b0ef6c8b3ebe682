package wallet

import "errors"

var (
	// ErrUnsupportedKind is returned when no signer is registered for a kind.
	ErrUnsupportedKind = errors.New("wallet kind not supported by builder")
	// ErrInvalidAddress is returned when the signing address is not a hex address.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrNoAccount is returned when a signer exposes no account.
	ErrNoAccount = errors.New("wallet exposes no account")
)
