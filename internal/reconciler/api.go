package reconciler

import (
	"github.com/bhandras/zkdash/internal/actor"
	"github.com/bhandras/zkdash/internal/provider"
	"github.com/bhandras/zkdash/internal/wallet"
)

// Mount returns a command input that starts a mount generation: the stored
// wallet kind is restored and the address poll timer starts.
func Mount() actor.Input {
	return cmdMount{}
}

// Unmount returns a command input that tears the mount down. Subscriptions
// are released, polling stops and any in-flight build is cancelled.
func Unmount() actor.Input {
	return cmdUnmount{}
}

// AttachProvider returns a command input that makes p the active provider.
// The provider's current address and network are captured at call time. A
// nil provider detaches.
func AttachProvider(p provider.Provider) actor.Input {
	if p == nil {
		return cmdDetachProvider{}
	}
	return cmdAttachProvider{
		Provider:        p,
		SelectedAddress: p.SelectedAddress(),
		NetworkVersion:  p.NetworkVersion(),
	}
}

// DetachProvider returns a command input that drops the active provider.
func DetachProvider() actor.Input {
	return cmdDetachProvider{}
}

// SelectWallet returns a command input choosing the wallet backend. It also
// re-arms a build that previously failed.
func SelectWallet(kind wallet.Kind) actor.Input {
	return cmdSelectWallet{Kind: kind}
}

// DismissError returns a command input that closes the error dialog.
func DismissError() actor.Input {
	return cmdDismissError{}
}

// DismissAccessModal returns a command input that closes the
// re-authentication dialog.
func DismissAccessModal() actor.Input {
	return cmdDismissAccessModal{}
}

// Logout returns a command input that discards the session and the chosen
// wallet kind.
func Logout() actor.Input {
	return cmdLogout{}
}

// Retry returns a command input that re-arms a failed build.
func Retry() actor.Input {
	return cmdRetry{}
}
