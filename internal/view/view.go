// Package view projects the shared session store onto the dashboard's
// content wrapper: header and footer chrome plus the error and
// re-authentication dialogs.
package view

import (
	"github.com/bhandras/zkdash/internal/store"
)

const (
	// StartPageClass marks the wrapper before a wallet kind is chosen.
	StartPageClass = "start-page"

	wrapperClass = "content-wrapper"

	// AccessDialogText is the body of the re-authentication dialog.
	AccessDialogText = "Please complete sign-in in the pop-up"
)

// Dialog is a modal dialog.
type Dialog struct {
	Visible bool   `json:"visible"`
	Class   string `json:"class"`
	Text    string `json:"text"`
}

// Surface is the rendered content wrapper.
type Surface struct {
	WrapperClass string `json:"wrapperClass"`
	ShowHeader   bool   `json:"showHeader"`
	ShowFooter   bool   `json:"showFooter"`
	Hint         string `json:"hint,omitempty"`

	ErrorDialog  Dialog `json:"errorDialog"`
	AccessDialog Dialog `json:"accessDialog"`

	WalletKind string `json:"walletKind,omitempty"`
	Address    string `json:"address,omitempty"`
	Phase      string `json:"phase"`
}

// Project renders snap for the page at path. The re-authentication dialog
// is never shown on the root page, without a provider, or while the
// provider is on a network other than rightNetworkID.
func Project(snap store.Snapshot, path, rightNetworkID string) Surface {
	s := Surface{
		WrapperClass: wrapperClass,
		ShowHeader:   snap.WalletKind != "",
		ShowFooter:   true,
		Hint:         snap.Hint,
		WalletKind:   string(snap.WalletKind),
		Address:      snap.Address,
		Phase:        snap.Phase,
		ErrorDialog: Dialog{
			Visible: snap.Error != "",
			Class:   "error",
			Text:    snap.Error,
		},
		AccessDialog: Dialog{
			Visible: snap.AccessModalOpen &&
				len(path) > 1 &&
				snap.ProviderAttached &&
				snap.NetworkVersion == rightNetworkID,
			Class: "acc",
			Text:  AccessDialogText,
		},
	}
	if snap.WalletKind == "" {
		s.WrapperClass += " " + StartPageClass
	}
	return s
}
