package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bhandras/zkdash/internal/api/handlers"
	"github.com/bhandras/zkdash/internal/crypto"
	"github.com/bhandras/zkdash/internal/metrics"
	"github.com/bhandras/zkdash/internal/store"
	"github.com/bhandras/zkdash/internal/view"
	"github.com/bhandras/zkdash/internal/wallet"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const addr = "0x00000000000000000000000000000000000000aa"

var mainnet = handlers.Network{ID: "1", Name: "Ethereum Mainnet"}

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeController struct {
	mu       sync.Mutex
	closed   bool
	selected []wallet.Kind
	calls    map[string]int
}

func (f *fakeController) record(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
	return !f.closed
}

func (f *fakeController) SelectWallet(kind wallet.Kind) bool {
	f.mu.Lock()
	f.selected = append(f.selected, kind)
	f.mu.Unlock()
	return f.record("select")
}
func (f *fakeController) DismissError() bool       { return f.record("dismissError") }
func (f *fakeController) DismissAccessModal() bool { return f.record("dismissAccess") }
func (f *fakeController) Logout() bool             { return f.record("logout") }
func (f *fakeController) Retry() bool              { return f.record("retry") }

func (f *fakeController) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

type env struct {
	router  *gin.Engine
	store   *store.Store
	control *fakeController
	jwt     *crypto.JWTManager
	metrics *metrics.Metrics
}

func newEnv(t *testing.T, opts ...func(*Deps)) *env {
	t.Helper()
	jwtManager, err := crypto.NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)

	e := &env{
		store:   store.New(),
		control: &fakeController{},
		jwt:     jwtManager,
		metrics: metrics.New(),
	}
	deps := Deps{
		Store:      e.store,
		Controller: e.control,
		JWT:        e.jwt,
		Metrics:    e.metrics,
		Network:    mainnet,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	e.router = NewRouter(deps)
	return e
}

func (e *env) do(method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// activate installs a session in the store and returns a token for it.
func (e *env) activate(t *testing.T) (*wallet.Session, string) {
	t.Helper()
	id := uuid.New()
	token, err := e.jwt.IssueToken(id.String(), addr, string(wallet.KindMetamask))
	require.NoError(t, err)
	session := wallet.NewSession(wallet.SessionParams{
		ID:         id,
		Kind:       wallet.KindMetamask,
		Address:    addr,
		PubKeyHash: "sync:01",
		Token:      token,
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
	})
	e.store.SetWalletKind(wallet.KindMetamask)
	e.store.SetSession(session)
	return session, token
}

func TestGetState(t *testing.T) {
	e := newEnv(t)
	e.store.SetWalletKind(wallet.KindMetamask)
	e.store.SetConnection(store.Connection{
		ProviderAttached: true,
		NetworkVersion:   "1",
		Address:          addr,
		Phase:            "NetworkValidated",
	})

	w := e.do(http.MethodGet, "/v1/state", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got handlers.StateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "Metamask", got.WalletKind)
	require.Equal(t, addr, got.Address)
	require.Equal(t, "NetworkValidated", got.Phase)
	require.Equal(t, mainnet, got.RightNetwork)
	require.False(t, got.HasSession)
	require.NotNil(t, got.Balances)
}

func TestGetView(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/v1/view", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var start view.Surface
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &start))
	require.Contains(t, start.WrapperClass, view.StartPageClass)
	require.False(t, start.ShowHeader)

	e.store.SetWalletKind(wallet.KindMetamask)
	e.store.SetAccessModal(true)
	e.store.SetConnection(store.Connection{ProviderAttached: true, NetworkVersion: "1", Address: addr})

	w = e.do(http.MethodGet, "/v1/view?path=/account", "", "")
	var got view.Surface
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.True(t, got.ShowHeader)
	require.True(t, got.AccessDialog.Visible)
	require.Equal(t, view.AccessDialogText, got.AccessDialog.Text)
}

func TestSelectWallet(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/v1/wallet", `{"kind":"ledger"}`, "")
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, []wallet.Kind{wallet.KindLedger}, e.control.selected)

	w = e.do(http.MethodPost, "/v1/wallet", `{"kind":"Paper"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "unknown wallet kind")

	w = e.do(http.MethodPost, "/v1/wallet", `{}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, e.control.selected, 1)
}

func TestDismissAndRetry(t *testing.T) {
	e := newEnv(t)

	require.Equal(t, http.StatusAccepted, e.do(http.MethodPost, "/v1/modals/error/dismiss", "", "").Code)
	require.Equal(t, http.StatusAccepted, e.do(http.MethodPost, "/v1/modals/access/dismiss", "", "").Code)
	require.Equal(t, http.StatusAccepted, e.do(http.MethodPost, "/v1/retry", "", "").Code)
	require.Equal(t, 1, e.control.count("dismissError"))
	require.Equal(t, 1, e.control.count("dismissAccess"))
	require.Equal(t, 1, e.control.count("retry"))

	e.control.closed = true
	require.Equal(t, http.StatusServiceUnavailable, e.do(http.MethodPost, "/v1/retry", "", "").Code)
}

func TestProtectedRoutesRequireCurrentSession(t *testing.T) {
	e := newEnv(t)

	require.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/v1/session", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/v1/session", "", "garbage").Code)

	session, token := e.activate(t)

	w := e.do(http.MethodGet, "/v1/session", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var got handlers.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, session.ID(), got.ID)
	require.Equal(t, addr, got.Address)
	require.Equal(t, "Metamask", got.Kind)
	require.Equal(t, "sync:01", got.PubKeyHash)

	// A drifted or logged-out session invalidates its token.
	e.store.SetSession(nil)
	require.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/v1/session", "", token).Code)

	e.activate(t)
	require.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/v1/session", "", token).Code)
}

func TestSessionQR(t *testing.T) {
	e := newEnv(t)
	_, token := e.activate(t)

	w := e.do(http.MethodGet, "/v1/session/qr?size=128", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 128, img.Bounds().Dx())

	require.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/v1/session/qr?size=0", "", token).Code)
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	_, token := e.activate(t)

	require.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/v1/logout", "", "").Code)
	require.Zero(t, e.control.count("logout"))

	require.Equal(t, http.StatusAccepted, e.do(http.MethodPost, "/v1/logout", "", token).Code)
	require.Equal(t, 1, e.control.count("logout"))
}

func TestSessionTokenUnlocksLogout(t *testing.T) {
	e := newEnv(t)

	require.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/v1/session/token", "", "").Code)

	session, _ := e.activate(t)

	var state handlers.StateResponse
	w := e.do(http.MethodGet, "/v1/state", "", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.Equal(t, session.ID(), state.SessionID)

	// The dashboard learns the token over HTTP only.
	w = e.do(http.MethodGet, "/v1/session/token", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var handoff handlers.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &handoff))
	require.Equal(t, session.ID(), handoff.SessionID)
	require.NotEmpty(t, handoff.Token)

	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/v1/session", "", handoff.Token).Code)
	require.Equal(t, http.StatusAccepted, e.do(http.MethodPost, "/v1/logout", "", handoff.Token).Code)
	require.Equal(t, 1, e.control.count("logout"))

	// Once the session is gone the token is neither handed out nor accepted.
	e.store.SetSession(nil)
	require.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/v1/session/token", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/v1/logout", "", handoff.Token).Code)
	require.Equal(t, 1, e.control.count("logout"))
}

type kindSet map[wallet.Kind]bool

func (k kindSet) Supports(kind wallet.Kind) bool { return k[kind] }

func TestSelectWalletRejectsUnavailableKind(t *testing.T) {
	e := newEnv(t, func(d *Deps) {
		d.Kinds = kindSet{wallet.KindMetamask: true}
	})

	w := e.do(http.MethodPost, "/v1/wallet", `{"kind":"Trezor"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Trezor")
	require.Empty(t, e.control.selected)

	require.Equal(t, http.StatusAccepted,
		e.do(http.MethodPost, "/v1/wallet", `{"kind":"Metamask"}`, "").Code)
	require.Equal(t, []wallet.Kind{wallet.KindMetamask}, e.control.selected)
}

func TestRequestsAreMeasured(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodGet, "/v1/state", "", "")
	e.do(http.MethodGet, "/v1/state", "", "")
	e.do(http.MethodGet, "/nope", "", "")

	n, err := testutil.GatherAndCount(e.metrics.Registry(), "zkdash_http_requests_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	w := e.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(),
		`zkdash_http_requests_total{method="GET",path="/v1/state",status="200"} 2`)
	require.Contains(t, w.Body.String(),
		`zkdash_http_requests_total{method="GET",path="unmatched",status="404"} 1`)
}

func TestUpdatesStreamSurface(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/updates?path=/account"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	read := func() view.Surface {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var s view.Surface
		require.NoError(t, conn.ReadJSON(&s))
		return s
	}

	first := read()
	require.False(t, first.ErrorDialog.Visible)

	e.store.SetError("Wrong network, please switch to the Ethereum Mainnet")
	next := read()
	require.True(t, next.ErrorDialog.Visible)
	require.Equal(t, "Wrong network, please switch to the Ethereum Mainnet", next.ErrorDialog.Text)

	// Writes that leave the surface unchanged are not re-sent.
	e.store.SetBalances([]wallet.Balance{{Token: "ETH", Amount: "1"}})
	e.store.SetError("")
	require.False(t, read().ErrorDialog.Visible)
}

func TestUpdatesRejectsForeignOrigin(t *testing.T) {
	st := store.New()
	h := handlers.NewUpdatesHandler(st, mainnet, []string{"https://dash.example"})

	// Mounted without the CORS middleware so only the upgrade check applies.
	r := gin.New()
	r.GET("/v1/updates", h.Stream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/updates"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://DASH.example"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var s view.Surface
	require.NoError(t, conn.ReadJSON(&s))
}
