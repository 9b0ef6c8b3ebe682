// Package api exposes the session reconciler to the browser dashboard over
// HTTP and WebSocket.
package api

import (
	"net/http"

	"github.com/bhandras/zkdash/internal/api/handlers"
	"github.com/bhandras/zkdash/internal/api/middleware"
	"github.com/bhandras/zkdash/internal/crypto"
	"github.com/bhandras/zkdash/internal/metrics"
	"github.com/bhandras/zkdash/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps wires the router to the rest of the daemon.
type Deps struct {
	Store          *store.Store
	Controller     handlers.Controller
	JWT            *crypto.JWTManager
	Metrics        *metrics.Metrics
	Network        handlers.Network
	AllowedOrigins []string
	// Kinds limits POST /v1/wallet to buildable kinds. Nil accepts all.
	Kinds handlers.KindSupport
}

// NewRouter builds the dashboard router.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}
	if len(d.AllowedOrigins) == 0 || (len(d.AllowedOrigins) == 1 && d.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	router.Use(cors.New(corsCfg))
	router.Use(middleware.LoggingMiddleware(d.Metrics))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "zkdash")
	})
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	walletHandler := handlers.NewWalletHandler(d.Store, d.Controller, d.Network, d.Kinds)
	sessionHandler := handlers.NewSessionHandler(d.Store, d.Controller)
	updatesHandler := handlers.NewUpdatesHandler(d.Store, d.Network, d.AllowedOrigins)

	v1 := router.Group("/v1")
	{
		v1.GET("/state", walletHandler.GetState)
		v1.GET("/view", walletHandler.GetView)
		v1.POST("/wallet", walletHandler.SelectWallet)
		v1.POST("/modals/error/dismiss", walletHandler.DismissError)
		v1.POST("/modals/access/dismiss", walletHandler.DismissAccessModal)
		v1.POST("/retry", walletHandler.Retry)
		v1.GET("/updates", updatesHandler.Stream)
		v1.GET("/session/token", sessionHandler.GetSessionToken)
	}

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(d.JWT, d.Store))
	{
		protected.GET("/session", sessionHandler.GetSession)
		protected.GET("/session/qr", sessionHandler.GetSessionQR)
		protected.POST("/logout", sessionHandler.Logout)
	}

	return router
}
