package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"
)

const (
	seedInfo = "zkdash/session-seed/v1"
	seedSize = 32
)

// ErrEmptySignature is returned when no sign-in signature is supplied.
var ErrEmptySignature = errors.New("empty sign-in signature")

// DeriveSessionSeed derives the zk signing seed from the sign-in signature.
// The address salts the derivation so one signature cannot seed two accounts.
func DeriveSessionSeed(signature []byte, address string) ([]byte, error) {
	if len(signature) == 0 {
		return nil, ErrEmptySignature
	}
	salt := []byte(strings.ToLower(strings.TrimSpace(address)))
	r := hkdf.New(sha256.New, signature, salt, []byte(seedInfo))

	seed := make([]byte, seedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("derive session seed: %w", err)
	}
	return seed, nil
}

// PubKeyHash returns the "sync:"-prefixed hash identifying the signing key
// generated from seed.
func PubKeyHash(seed []byte) (string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", fmt.Errorf("invalid seed length: %d (expected %d)", len(seed), ed25519.SeedSize)
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	digest := ethcrypto.Keccak256(pub)
	return "sync:" + hex.EncodeToString(digest[len(digest)-20:]), nil
}
