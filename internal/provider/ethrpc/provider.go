// Package ethrpc implements provider.Provider on top of an Ethereum JSON-RPC
// endpoint. Account and network changes are detected by polling eth_accounts
// and net_version and surfaced as provider notifications.
package ethrpc

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/bhandras/zkdash/internal/provider"
	"github.com/bhandras/zkdash/internal/wallet"
	"github.com/bhandras/zkdash/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	defaultPollInterval = time.Second
	defaultCallTimeout  = 10 * time.Second
)

// Provider is a polling JSON-RPC wallet provider.
type Provider struct {
	provider.Listeners

	client   *rpc.Client
	interval time.Duration
	timeout  time.Duration

	mu          sync.RWMutex
	selected    string
	network     string
	autoRefresh bool
	primed      bool

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var (
	_ provider.Provider    = (*Provider)(nil)
	_ wallet.Signer        = (*Provider)(nil)
	_ wallet.BalanceReader = (*Provider)(nil)
)

// Option configures a Provider.
type Option func(*Provider)

// WithPollInterval sets how often the endpoint is polled for changes.
func WithPollInterval(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithCallTimeout bounds each RPC round trip made by the poller.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// Dial connects to a JSON-RPC endpoint (http, ws or ipc).
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Provider, error) {
	client, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	return New(client, opts...), nil
}

// New wraps an existing RPC client. The Provider owns the client.
func New(client *rpc.Client, opts ...Option) *Provider {
	p := &Provider{
		client:      client,
		interval:    defaultPollInterval,
		timeout:     defaultCallTimeout,
		autoRefresh: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SelectedAddress implements provider.Provider.
func (p *Provider) SelectedAddress() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selected
}

// NetworkVersion implements provider.Provider.
func (p *Provider) NetworkVersion() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.network
}

// SetAutoRefreshOnNetworkChange implements provider.Provider. While enabled,
// a network change resets the provider: every registered handler is dropped
// and no notification is delivered.
func (p *Provider) SetAutoRefreshOnNetworkChange(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.autoRefresh = enabled
}

// Start primes the provider state and begins polling in the background.
func (p *Provider) Start(ctx context.Context) error {
	if err := p.Refresh(ctx); err != nil {
		return err
	}

	p.loopMu.Lock()
	defer p.loopMu.Unlock()
	if p.cancel != nil {
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.poll(loopCtx, p.done)
	return nil
}

// Close stops polling and closes the RPC client.
func (p *Provider) Close() {
	p.loopMu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.loopMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	p.client.Close()
}

func (p *Provider) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			callCtx, cancel := context.WithTimeout(ctx, p.timeout)
			err := p.Refresh(callCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				logger.Debugf("ethrpc: refresh failed: %v", err)
			}
		}
	}
}

// Refresh reads the current account and network and fires notifications for
// whatever changed since the previous refresh. The first refresh only primes
// state.
func (p *Provider) Refresh(ctx context.Context) error {
	selected, err := p.firstAccount(ctx)
	if err != nil {
		return err
	}
	var network string
	if err := p.client.CallContext(ctx, &network, "net_version"); err != nil {
		return fmt.Errorf("net_version: %w", err)
	}

	p.mu.Lock()
	accountChanged := selected != p.selected
	networkChanged := network != p.network
	primed := p.primed
	reset := primed && networkChanged && p.autoRefresh
	p.selected = selected
	p.network = network
	p.primed = true
	p.mu.Unlock()

	if !primed {
		return nil
	}
	if reset {
		logger.Warnf("ethrpc: network changed to %s with auto-refresh enabled; dropping listeners", network)
		p.Clear()
		return nil
	}
	if networkChanged {
		p.Emit(provider.EventNetworkChanged)
	}
	if accountChanged {
		p.Emit(provider.EventAccountsChanged)
	}
	return nil
}

func (p *Provider) firstAccount(ctx context.Context) (string, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return "", fmt.Errorf("eth_accounts: %w", err)
	}
	if len(accounts) == 0 {
		return "", nil
	}
	return strings.ToLower(accounts[0].Hex()), nil
}

// Address implements wallet.Signer.
func (p *Provider) Address(ctx context.Context) (string, error) {
	return p.firstAccount(ctx)
}

// SignMessage implements wallet.Signer using personal_sign.
func (p *Provider) SignMessage(ctx context.Context, address string, msg []byte) ([]byte, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", wallet.ErrInvalidAddress, address)
	}
	var sig hexutil.Bytes
	err := p.client.CallContext(ctx, &sig, "personal_sign", hexutil.Bytes(msg), common.HexToAddress(address))
	if err != nil {
		return nil, fmt.Errorf("personal_sign: %w", err)
	}
	return sig, nil
}

// Balances implements wallet.BalanceReader with the native ETH balance.
func (p *Provider) Balances(ctx context.Context, address string) ([]wallet.Balance, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", wallet.ErrInvalidAddress, address)
	}
	var balance hexutil.Big
	err := p.client.CallContext(ctx, &balance, "eth_getBalance", common.HexToAddress(address), "latest")
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance: %w", err)
	}
	return []wallet.Balance{{Token: "ETH", Amount: (*big.Int)(&balance).String()}}, nil
}
