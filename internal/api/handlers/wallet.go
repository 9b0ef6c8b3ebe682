package handlers

import (
	"net/http"

	"github.com/bhandras/zkdash/internal/store"
	"github.com/bhandras/zkdash/internal/view"
	"github.com/bhandras/zkdash/internal/wallet"
	"github.com/gin-gonic/gin"
)

// WalletHandler serves the public dashboard state and user actions.
type WalletHandler struct {
	store   *store.Store
	control Controller
	network Network
	kinds   KindSupport
}

// NewWalletHandler returns the handler. A nil kinds accepts every known
// wallet kind.
func NewWalletHandler(st *store.Store, control Controller, network Network, kinds KindSupport) *WalletHandler {
	return &WalletHandler{store: st, control: control, network: network, kinds: kinds}
}

// StateResponse is the public dashboard state.
type StateResponse struct {
	WalletKind       string           `json:"walletKind,omitempty"`
	Address          string           `json:"address,omitempty"`
	Phase            string           `json:"phase"`
	ProviderAttached bool             `json:"providerAttached"`
	NetworkVersion   string           `json:"networkVersion,omitempty"`
	RightNetwork     Network          `json:"rightNetwork"`
	HasSession       bool             `json:"hasSession"`
	SessionID        string           `json:"sessionId,omitempty"`
	Hint             string           `json:"hint,omitempty"`
	Error            string           `json:"error,omitempty"`
	AccessModalOpen  bool             `json:"accessModalOpen"`
	Balances         []wallet.Balance `json:"balances"`
	Version          uint64           `json:"version"`
}

// GetState handles GET /v1/state
func (h *WalletHandler) GetState(c *gin.Context) {
	snap := h.store.Snapshot()

	balances := snap.Balances
	if balances == nil {
		balances = []wallet.Balance{}
	}
	c.JSON(http.StatusOK, StateResponse{
		WalletKind:       string(snap.WalletKind),
		Address:          snap.Address,
		Phase:            snap.Phase,
		ProviderAttached: snap.ProviderAttached,
		NetworkVersion:   snap.NetworkVersion,
		RightNetwork:     h.network,
		HasSession:       snap.Session != nil,
		SessionID:        sessionID(snap),
		Hint:             snap.Hint,
		Error:            snap.Error,
		AccessModalOpen:  snap.AccessModalOpen,
		Balances:         balances,
		Version:          snap.Version,
	})
}

// GetView handles GET /v1/view?path=
func (h *WalletHandler) GetView(c *gin.Context) {
	path := c.DefaultQuery("path", "/")
	c.JSON(http.StatusOK, view.Project(h.store.Snapshot(), path, h.network.ID))
}

type selectWalletRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// SelectWallet handles POST /v1/wallet
func (h *WalletHandler) SelectWallet(c *gin.Context) {
	var req selectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	kind, err := wallet.ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.kinds != nil && !h.kinds.Supports(kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet kind not available: " + string(kind)})
		return
	}
	h.accepted(c, h.control.SelectWallet(kind))
}

// DismissError handles POST /v1/modals/error/dismiss
func (h *WalletHandler) DismissError(c *gin.Context) {
	h.accepted(c, h.control.DismissError())
}

// DismissAccessModal handles POST /v1/modals/access/dismiss
func (h *WalletHandler) DismissAccessModal(c *gin.Context) {
	h.accepted(c, h.control.DismissAccessModal())
}

// Retry handles POST /v1/retry
func (h *WalletHandler) Retry(c *gin.Context) {
	h.accepted(c, h.control.Retry())
}

func (h *WalletHandler) accepted(c *gin.Context, ok bool) {
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reconciler is not accepting input"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

func sessionID(snap store.Snapshot) string {
	if snap.Session == nil {
		return ""
	}
	return snap.Session.ID()
}
