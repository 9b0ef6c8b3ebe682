package view

import (
	"testing"

	"github.com/bhandras/zkdash/internal/store"
	"github.com/bhandras/zkdash/internal/wallet"
	"github.com/stretchr/testify/require"
)

func TestProjectStartPage(t *testing.T) {
	t.Parallel()

	s := Project(store.Snapshot{Phase: "Disconnected"}, "/", "1")
	require.Equal(t, "content-wrapper start-page", s.WrapperClass)
	require.False(t, s.ShowHeader)
	require.True(t, s.ShowFooter)
	require.False(t, s.ErrorDialog.Visible)
	require.False(t, s.AccessDialog.Visible)
}

func TestProjectErrorDialog(t *testing.T) {
	t.Parallel()

	s := Project(store.Snapshot{WalletKind: wallet.KindMetamask, Error: "boom"}, "/", "1")
	require.Equal(t, "content-wrapper", s.WrapperClass)
	require.True(t, s.ShowHeader)
	require.True(t, s.ErrorDialog.Visible)
	require.Equal(t, "boom", s.ErrorDialog.Text)
	require.Equal(t, "error", s.ErrorDialog.Class)
}

func TestProjectAccessDialog(t *testing.T) {
	t.Parallel()

	open := store.Snapshot{
		WalletKind:       wallet.KindMetamask,
		AccessModalOpen:  true,
		ProviderAttached: true,
		NetworkVersion:   "1",
	}

	tests := []struct {
		name    string
		mutate  func(*store.Snapshot)
		path    string
		visible bool
	}{
		{name: "visible", path: "/account", visible: true},
		{name: "root page", path: "/", visible: false},
		{name: "empty path", path: "", visible: false},
		{name: "closed", path: "/account", mutate: func(s *store.Snapshot) { s.AccessModalOpen = false }},
		{name: "no provider", path: "/account", mutate: func(s *store.Snapshot) { s.ProviderAttached = false }},
		{name: "wrong network", path: "/account", mutate: func(s *store.Snapshot) { s.NetworkVersion = "5" }},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			snap := open
			if tc.mutate != nil {
				tc.mutate(&snap)
			}
			s := Project(snap, tc.path, "1")
			require.Equal(t, tc.visible, s.AccessDialog.Visible)
			require.Equal(t, AccessDialogText, s.AccessDialog.Text)
		})
	}
}
