package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bhandras/zkdash/internal/crypto"
	"github.com/bhandras/zkdash/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// SignInMessage is the message the user signs to derive the zk session key.
const SignInMessage = "Access zkSync account.\n\nOnly sign this message for a trusted client!"

// BuildRequest describes the session to build.
type BuildRequest struct {
	Kind Kind
	// Address is the external address to bind. Empty means ask the signer.
	Address string
}

// Result is a successfully built session plus its initial balances.
type Result struct {
	Session  *Session
	Balances []Balance
}

// Builder creates zk-wallet sessions. Build must honor ctx cancellation.
type Builder interface {
	Build(ctx context.Context, req BuildRequest) (*Result, error)
}

// Signer is a wallet backend able to sign the sign-in message.
type Signer interface {
	// Address returns the signer's active account.
	Address(ctx context.Context) (string, error)
	// SignMessage signs msg with the account's personal-sign scheme.
	SignMessage(ctx context.Context, address string, msg []byte) ([]byte, error)
}

// BalanceReader loads balances for an address.
type BalanceReader interface {
	Balances(ctx context.Context, address string) ([]Balance, error)
}

// TokenIssuer mints bearer tokens for built sessions.
type TokenIssuer interface {
	IssueToken(sessionID, address, kind string) (string, error)
}

// SignerBuilder builds sessions by asking the kind's Signer to sign the
// sign-in message and deriving the zk key from the signature.
type SignerBuilder struct {
	signers  map[Kind]Signer
	balances BalanceReader
	tokens   TokenIssuer
	now      func() time.Time
}

// BuilderOption configures a SignerBuilder.
type BuilderOption func(*SignerBuilder)

// WithSigner registers the signer used for kind.
func WithSigner(kind Kind, s Signer) BuilderOption {
	return func(b *SignerBuilder) { b.signers[kind] = s }
}

// WithBalances sets the reader used to load initial balances.
func WithBalances(r BalanceReader) BuilderOption {
	return func(b *SignerBuilder) { b.balances = r }
}

// WithNow overrides the time source stamped into sessions.
func WithNow(now func() time.Time) BuilderOption {
	return func(b *SignerBuilder) { b.now = now }
}

// NewSignerBuilder returns a builder that issues session tokens via tokens.
func NewSignerBuilder(tokens TokenIssuer, opts ...BuilderOption) *SignerBuilder {
	b := &SignerBuilder{
		signers: make(map[Kind]Signer),
		tokens:  tokens,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Supports reports whether a signer is registered for kind.
func (b *SignerBuilder) Supports(kind Kind) bool {
	return b.signers[kind] != nil
}

// Build implements Builder.
func (b *SignerBuilder) Build(ctx context.Context, req BuildRequest) (*Result, error) {
	signer, ok := b.signers[req.Kind]
	if !ok || signer == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, req.Kind)
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		var err error
		address, err = signer.Address(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve address: %w", err)
		}
		if address == "" {
			return nil, ErrNoAccount
		}
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	sig, err := signer.SignMessage(ctx, address, []byte(SignInMessage))
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seed, err := crypto.DeriveSessionSeed(sig, address)
	if err != nil {
		return nil, err
	}
	pubKeyHash, err := crypto.PubKeyHash(seed)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	token, err := b.tokens.IssueToken(id.String(), address, string(req.Kind))
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	var balances []Balance
	if b.balances != nil {
		balances, err = b.balances.Balances(ctx, address)
		if err != nil {
			// Balances are a cache; a session without them is still usable.
			logger.Warnf("wallet: load balances for %s: %v", address, err)
			balances = nil
		}
	}

	return &Result{
		Session: NewSession(SessionParams{
			ID:         id,
			Kind:       req.Kind,
			Address:    address,
			PubKeyHash: pubKeyHash,
			Token:      token,
			CreatedAt:  b.now(),
		}),
		Balances: balances,
	}, nil
}
