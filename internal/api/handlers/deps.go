// Package handlers implements the dashboard's HTTP and WebSocket endpoints.
package handlers

import "github.com/bhandras/zkdash/internal/wallet"

// Controller delivers user actions to the session reconciler. Each method
// reports whether the action was accepted.
type Controller interface {
	SelectWallet(kind wallet.Kind) bool
	DismissError() bool
	DismissAccessModal() bool
	Logout() bool
	Retry() bool
}

// Network names the network the dashboard requires.
type Network struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// KindSupport reports which wallet kinds the daemon can build sessions for.
type KindSupport interface {
	Supports(kind wallet.Kind) bool
}
