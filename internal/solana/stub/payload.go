package stub

import (
	"crypto/ed25519"
	"crypto/sha256"

	"solana-swap-engine/internal/solana"
)

// Key derives a deterministic test keypair from seed.
func Key(seed byte) ed25519.PrivateKey {
	s := sha256.Sum256([]byte{seed})
	return ed25519.NewKeyFromSeed(s[:])
}

// Blockhash derives a deterministic 32-byte blockhash from seed.
func Blockhash(seed byte) [32]byte {
	return sha256.Sum256([]byte{'b', seed})
}

// UnsignedTransaction builds a minimal legacy transaction with payer as the
// only signer and an empty signature slot.
func UnsignedTransaction(payer ed25519.PublicKey, blockhash [32]byte) []byte {
	msg := []byte{1, 0, 0, 1}
	msg = append(msg, payer...)
	msg = append(msg, blockhash[:]...)
	msg = append(msg, 0) // no instructions

	raw := []byte{1}
	raw = append(raw, make([]byte, ed25519.SignatureSize)...)
	return append(raw, msg...)
}

// SignedPayload builds a transaction signed by Key(seed). Different seeds give
// different signatures.
func SignedPayload(seed byte) (payload []byte, signature string) {
	key := Key(seed)
	tx, err := solana.DecodeTransaction(UnsignedTransaction(key.Public().(ed25519.PublicKey), Blockhash(seed)))
	if err != nil {
		panic(err)
	}
	if err := tx.Sign(signer{key}); err != nil {
		panic(err)
	}
	return tx.Serialize(), tx.Signature()
}

type signer struct {
	key ed25519.PrivateKey
}

func (s signer) PublicKey() ed25519.PublicKey { return s.key.Public().(ed25519.PublicKey) }

func (s signer) Sign(message []byte) []byte { return ed25519.Sign(s.key, message) }
