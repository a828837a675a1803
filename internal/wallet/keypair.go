// Package wallet loads the trading keypair and validates addresses.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrInvalidKey is returned for secrets that do not decode to an ed25519 keypair.
var ErrInvalidKey = errors.New("invalid private key")

// Keypair is an ed25519 signing key. It satisfies solana.Signer.
type Keypair struct {
	key ed25519.PrivateKey
}

// FromSecret parses a base58 secret key. Both the 64-byte form exported by
// wallets and a bare 32-byte seed are accepted.
func FromSecret(secret string) (*Keypair, error) {
	raw, err := base58.Decode(strings.TrimSpace(secret))
	if err != nil {
		return nil, fmt.Errorf("%w: base58: %v", ErrInvalidKey, err)
	}
	return fromBytes(raw)
}

// FromFile reads a keypair file: either a JSON byte array as written by
// solana-keygen or a base58 secret.
func FromFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "[") {
		var raw []byte
		var ints []int
		if err := json.Unmarshal([]byte(text), &ints); err != nil {
			return nil, fmt.Errorf("%w: json: %v", ErrInvalidKey, err)
		}
		for _, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: byte out of range: %d", ErrInvalidKey, v)
			}
			raw = append(raw, byte(v))
		}
		return fromBytes(raw)
	}
	return FromSecret(text)
}

// Load resolves a key from secret when set, otherwise from path.
func Load(secret, path string) (*Keypair, error) {
	if secret != "" {
		return FromSecret(secret)
	}
	if path != "" {
		return FromFile(path)
	}
	return nil, fmt.Errorf("%w: no private key configured", ErrInvalidKey)
}

func fromBytes(raw []byte) (*Keypair, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return &Keypair{key: ed25519.NewKeyFromSeed(raw)}, nil
	case ed25519.PrivateKeySize:
		key := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		// The trailing half must be the public key derived from the seed.
		if !key.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(raw[ed25519.SeedSize:])) {
			return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidKey)
		}
		return &Keypair{key: key}, nil
	default:
		return nil, fmt.Errorf("%w: expected 32 or 64 bytes, got %d", ErrInvalidKey, len(raw))
	}
}

// NewKeypair wraps an existing ed25519 private key.
func NewKeypair(key ed25519.PrivateKey) *Keypair {
	return &Keypair{key: key}
}

// PublicKey returns the raw public key.
func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.key.Public().(ed25519.PublicKey)
}

// Address returns the base58 public key.
func (k *Keypair) Address() string {
	return base58.Encode(k.PublicKey())
}

// Sign signs message with the private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.key, message)
}

// ValidateAddress checks that addr is a base58 encoded 32-byte account key.
func ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("invalid address %q: expected 32 bytes, got %d", addr, len(raw))
	}
	return nil
}

// ValidateWalletAddress additionally requires addr to be an ed25519 point, so
// program-derived addresses cannot be used as the trading owner.
func ValidateWalletAddress(addr string) error {
	if err := ValidateAddress(addr); err != nil {
		return err
	}
	raw, _ := base58.Decode(addr)
	if !isOnCurve(raw) {
		return fmt.Errorf("invalid wallet address %q: not on the ed25519 curve", addr)
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
