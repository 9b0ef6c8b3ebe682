package wallet

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Session is an authenticated zk-wallet handle. It is immutable once built.
type Session struct {
	id         uuid.UUID
	kind       Kind
	address    string
	pubKeyHash string
	token      string
	createdAt  time.Time
}

// SessionParams carries the fields of a new Session.
type SessionParams struct {
	ID         uuid.UUID
	Kind       Kind
	Address    string
	PubKeyHash string
	Token      string
	CreatedAt  time.Time
}

// NewSession returns a Session bound to p.Address.
func NewSession(p SessionParams) *Session {
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Session{
		id:         id,
		kind:       p.Kind,
		address:    p.Address,
		pubKeyHash: p.PubKeyHash,
		token:      p.Token,
		createdAt:  p.CreatedAt,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id.String() }

// Kind returns the wallet kind the session was built for.
func (s *Session) Kind() Kind { return s.kind }

// Address returns the external address the session is bound to.
func (s *Session) Address() string { return s.address }

// PubKeyHash returns the zk signing key hash derived at sign-in.
func (s *Session) PubKeyHash() string { return s.pubKeyHash }

// Token returns the bearer token issued for the session.
func (s *Session) Token() string { return s.token }

// CreatedAt returns when the session was built.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Balance is a cached token balance for the session address.
type Balance struct {
	Token string `json:"token"`
	// Amount is the balance in the token's base unit, base 10.
	Amount string `json:"amount"`
}

// SameAddress compares two external addresses case-insensitively. Hex
// addresses are compared by value so checksummed and lower-case forms match.
func SameAddress(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return a == b
	}
	if common.IsHexAddress(a) && common.IsHexAddress(b) {
		return common.HexToAddress(a) == common.HexToAddress(b)
	}
	return strings.EqualFold(a, b)
}
