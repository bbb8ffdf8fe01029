package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
)

// LoadKeypair reads a Solana CLI keypair file: a JSON array of 64 bytes
// holding the ed25519 seed followed by the public key.
func LoadKeypair(path string) (ed25519.PrivateKey, error) {
	if path == "" {
		return nil, fmt.Errorf("keypair path required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}

	// Solana CLI keypairs are a JSON array of numbers, not a base64 blob.
	var raw []int
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse keypair %s: %w", path, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair %s has %d bytes, want %d", path, len(raw), ed25519.PrivateKeySize)
	}

	key := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair %s: byte %d out of range", path, i)
		}
		key[i] = byte(v)
	}

	priv := ed25519.PrivateKey(key)
	derived := ed25519.NewKeyFromSeed(priv.Seed())
	if !priv.Public().(ed25519.PublicKey).Equal(derived.Public().(ed25519.PublicKey)) {
		return nil, fmt.Errorf("keypair %s: public half does not match seed", path)
	}
	return priv, nil
}

// ParseAddress decodes a base58 Solana address into its 32 raw bytes.
func ParseAddress(s string) ([32]byte, error) {
	var out [32]byte
	if s == "" {
		return out, fmt.Errorf("address required")
	}
	b, err := base58.Decode(s)
	if err != nil {
		return out, fmt.Errorf("address decode %q: %w", s, err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("address %q has %d bytes, want 32", s, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Address renders a public key as base58 text.
func Address(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}
