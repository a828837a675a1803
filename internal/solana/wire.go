package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	signatureLen = 64
	pubkeyLen    = 32
	hashLen      = 32

	// versionPrefix marks a versioned (v0+) message.
	versionPrefix = 0x80
)

// ErrMalformedTransaction is returned when wire bytes cannot be decoded.
var ErrMalformedTransaction = errors.New("malformed transaction")

// Signer signs transaction messages with an ed25519 key.
type Signer interface {
	PublicKey() ed25519.PublicKey
	Sign(message []byte) []byte
}

// WireTransaction is a transaction in Solana wire format: a compact array of
// signatures followed by the serialized message. Both legacy and v0 messages are supported.
type WireTransaction struct {
	Signatures [][]byte
	Message    []byte
}

// DecodeTransactionBase64 decodes a base64 wire transaction (as returned by swap builders).
func DecodeTransactionBase64(s string) (*WireTransaction, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrMalformedTransaction, err)
	}
	return DecodeTransaction(raw)
}

// DecodeTransaction parses wire bytes. The input is not retained.
func DecodeTransaction(raw []byte) (*WireTransaction, error) {
	n, off, err := decodeCompactU16(raw)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no signatures", ErrMalformedTransaction)
	}
	if len(raw) < off+n*signatureLen {
		return nil, fmt.Errorf("%w: truncated signatures", ErrMalformedTransaction)
	}

	tx := &WireTransaction{Signatures: make([][]byte, n)}
	for i := 0; i < n; i++ {
		sig := make([]byte, signatureLen)
		copy(sig, raw[off+i*signatureLen:])
		tx.Signatures[i] = sig
	}
	off += n * signatureLen

	tx.Message = append([]byte(nil), raw[off:]...)
	if _, err := tx.header(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Serialize returns the wire bytes. Each call returns a fresh slice.
func (t *WireTransaction) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(encodeCompactU16(len(t.Signatures)))
	for _, sig := range t.Signatures {
		buf.Write(sig)
	}
	buf.Write(t.Message)
	return buf.Bytes()
}

// Signature returns the base58 transaction id: the fee payer's signature.
func (t *WireTransaction) Signature() string {
	if len(t.Signatures) == 0 {
		return ""
	}
	return base58.Encode(t.Signatures[0])
}

// IsSigned reports whether every required signature slot is filled.
func (t *WireTransaction) IsSigned() bool {
	for _, sig := range t.Signatures {
		if isZero(sig) {
			return false
		}
	}
	return true
}

// RecentBlockhash returns the base58 blockhash the message was built against.
func (t *WireTransaction) RecentBlockhash() (string, error) {
	h, err := t.header()
	if err != nil {
		return "", err
	}
	return base58.Encode(t.Message[h.blockhashOffset : h.blockhashOffset+hashLen]), nil
}

// AccountKeys returns the static account keys of the message in base58.
func (t *WireTransaction) AccountKeys() ([]string, error) {
	h, err := t.header()
	if err != nil {
		return nil, err
	}
	keys := make([]string, h.numKeys)
	for i := 0; i < h.numKeys; i++ {
		start := h.keysOffset + i*pubkeyLen
		keys[i] = base58.Encode(t.Message[start : start+pubkeyLen])
	}
	return keys, nil
}

// Sign writes signer's signature into its required-signer slot.
func (t *WireTransaction) Sign(signer Signer) error {
	h, err := t.header()
	if err != nil {
		return err
	}

	pub := signer.PublicKey()
	for i := 0; i < h.numRequiredSignatures && i < h.numKeys; i++ {
		start := h.keysOffset + i*pubkeyLen
		if bytes.Equal(t.Message[start:start+pubkeyLen], pub) {
			if i >= len(t.Signatures) {
				return fmt.Errorf("%w: signature slot %d missing", ErrMalformedTransaction, i)
			}
			t.Signatures[i] = signer.Sign(t.Message)
			return nil
		}
	}
	return fmt.Errorf("signer %s is not a required signer", base58.Encode(pub))
}

type messageHeader struct {
	numRequiredSignatures int
	keysOffset            int
	numKeys               int
	blockhashOffset       int
}

func (t *WireTransaction) header() (messageHeader, error) {
	msg := t.Message
	off := 0
	if len(msg) > 0 && msg[0]&versionPrefix != 0 {
		if v := msg[0] &^ versionPrefix; v != 0 {
			return messageHeader{}, fmt.Errorf("%w: unsupported message version %d", ErrMalformedTransaction, v)
		}
		off = 1
	}
	if len(msg) < off+3 {
		return messageHeader{}, fmt.Errorf("%w: truncated header", ErrMalformedTransaction)
	}
	h := messageHeader{numRequiredSignatures: int(msg[off])}
	off += 3

	n, m, err := decodeCompactU16(msg[off:])
	if err != nil {
		return messageHeader{}, err
	}
	off += m
	h.keysOffset = off
	h.numKeys = n
	off += n * pubkeyLen
	h.blockhashOffset = off
	if len(msg) < off+hashLen {
		return messageHeader{}, fmt.Errorf("%w: truncated account keys", ErrMalformedTransaction)
	}
	if h.numRequiredSignatures != len(t.Signatures) {
		return messageHeader{}, fmt.Errorf("%w: header requires %d signatures, have %d",
			ErrMalformedTransaction, h.numRequiredSignatures, len(t.Signatures))
	}
	return h, nil
}

// decodeCompactU16 reads Solana's shortvec length prefix.
func decodeCompactU16(b []byte) (int, int, error) {
	val := 0
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("%w: truncated length prefix", ErrMalformedTransaction)
		}
		val |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return val, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: length prefix overflow", ErrMalformedTransaction)
}

func encodeCompactU16(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func isZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}
