package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bhandras/zkdash/internal/store"
	"github.com/bhandras/zkdash/internal/wallet"
	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// SessionHandler serves the authenticated session.
type SessionHandler struct {
	store   *store.Store
	control Controller
}

func NewSessionHandler(st *store.Store, control Controller) *SessionHandler {
	return &SessionHandler{store: st, control: control}
}

type SessionResponse struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Address    string    `json:"address"`
	PubKeyHash string    `json:"pubKeyHash"`
	CreatedAt  time.Time `json:"createdAt"`
}

func currentSession(s store.Snapshot) *wallet.Session { return s.Session }

// GetSession handles GET /v1/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	session := store.Select(h.store, currentSession)
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active session"})
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		ID:         session.ID(),
		Kind:       string(session.Kind()),
		Address:    session.Address(),
		PubKeyHash: session.PubKeyHash(),
		CreatedAt:  session.CreatedAt(),
	})
}

// GetSessionQR handles GET /v1/session/qr?size=
//
// The PNG encodes the session address so a phone wallet can scan it.
func (h *SessionHandler) GetSessionQR(c *gin.Context) {
	session := store.Select(h.store, currentSession)
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active session"})
		return
	}

	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxQRSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid size"})
			return
		}
		size = n
	}

	png, err := qrcode.Encode(session.Address(), qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// TokenResponse hands the dashboard the bearer token of the current session.
type TokenResponse struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
}

// GetSessionToken handles GET /v1/session/token
//
// The token is available only while the session is current; after a drift
// or logout this returns 404 and the old token stops authenticating.
func (h *SessionHandler) GetSessionToken(c *gin.Context) {
	session := store.Select(h.store, currentSession)
	if session == nil || session.Token() == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active session"})
		return
	}
	c.JSON(http.StatusOK, TokenResponse{SessionID: session.ID(), Token: session.Token()})
}

// Logout handles POST /v1/logout
func (h *SessionHandler) Logout(c *gin.Context) {
	if !h.control.Logout() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reconciler is not accepting input"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}
