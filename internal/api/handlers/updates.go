package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/bhandras/zkdash/internal/store"
	"github.com/bhandras/zkdash/internal/view"
	"github.com/bhandras/zkdash/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// UpdatesHandler streams the rendered surface over a WebSocket.
type UpdatesHandler struct {
	store    *store.Store
	network  Network
	upgrader websocket.Upgrader
}

// NewUpdatesHandler returns the handler. Browsers may connect only from
// allowedOrigins; an empty list or "*" allows any origin.
func NewUpdatesHandler(st *store.Store, network Network, allowedOrigins []string) *UpdatesHandler {
	return &UpdatesHandler{
		store:    st,
		network:  network,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			allowed = nil
			break
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(allowed) == 0 || origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Stream handles GET /v1/updates?path=
//
// The current surface is sent on connect and again after every store write
// that changes it. Client messages are ignored; the stream ends when the
// client goes away or the request context is done.
func (h *UpdatesHandler) Stream(c *gin.Context) {
	path := c.DefaultQuery("path", "/")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("updates: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	changed, cancel := h.store.Subscribe()
	defer cancel()

	// Drain reads so close frames are processed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debugf("updates: read error: %v", err)
				}
				return
			}
		}
	}()

	var last *view.Surface
	send := func() bool {
		surface := view.Project(h.store.Snapshot(), path, h.network.ID)
		if last != nil && *last == surface {
			return true
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(surface); err != nil {
			logger.Debugf("updates: write failed: %v", err)
			return false
		}
		last = &surface
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-changed:
			if !send() {
				return
			}
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
