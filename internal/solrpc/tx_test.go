package solrpc

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
)

func testSigner(t *testing.T) (ed25519.PrivateKey, [32]byte) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	var pub [32]byte
	copy(pub[:], priv.Public().(ed25519.PublicKey))
	return priv, pub
}

func TestAppendCompactU16(t *testing.T) {
	cases := []struct {
		v    uint16
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x01}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x4000, []byte{0x80, 0x80, 0x01}},
	}
	for _, c := range cases {
		got := appendCompactU16(nil, c.v)
		if len(got) != len(c.want) {
			t.Fatalf("v=%d: got %x want %x", c.v, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("v=%d: got %x want %x", c.v, got, c.want)
			}
		}
	}
}

func TestBuildTransferTx(t *testing.T) {
	priv, from := testSigner(t)
	var to [32]byte
	to[0] = 0xEE

	blockhashBytes := make([]byte, 32)
	for i := range blockhashBytes {
		blockhashBytes[i] = byte(0x10 + i)
	}
	blockhash := base58.Encode(blockhashBytes)

	const lamports = uint64(10_000_000) // 0.01 SOL

	txBase64, err := BuildTransferTx(priv, from, to, lamports, blockhash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		t.Fatalf("tx is not base64: %v", err)
	}

	// One signature followed by the message.
	if tx[0] != 1 {
		t.Fatalf("signature count = %d, want 1", tx[0])
	}
	sig := tx[1:65]
	msg := tx[65:]
	if !ed25519.Verify(priv.Public().(ed25519.PublicKey), msg, sig) {
		t.Fatalf("message signature does not verify")
	}

	// Header: 1 signer, 0 readonly signed, 1 readonly unsigned.
	if msg[0] != 1 || msg[1] != 0 || msg[2] != 1 {
		t.Fatalf("header = %v, want [1 0 1]", msg[:3])
	}
	if msg[3] != 3 {
		t.Fatalf("account key count = %d, want 3", msg[3])
	}
	keys := msg[4 : 4+96]
	for i := 0; i < 32; i++ {
		if keys[i] != from[i] {
			t.Fatalf("key 0 is not the signer pubkey")
		}
		if keys[32+i] != to[i] {
			t.Fatalf("key 1 is not the destination")
		}
		if keys[64+i] != 0 {
			t.Fatalf("key 2 is not the system program")
		}
	}
	for i, b := range msg[100:132] {
		if b != blockhashBytes[i] {
			t.Fatalf("blockhash byte %d = %#x, want %#x", i, b, blockhashBytes[i])
		}
	}

	// Single transfer instruction: program index 2, accounts [0 1],
	// data = u32 index + u64 lamports.
	if msg[132] != 1 || msg[133] != 2 || msg[134] != 2 || msg[135] != 0 || msg[136] != 1 || msg[137] != 12 {
		t.Fatalf("instruction envelope = %v", msg[132:138])
	}
	if got := binary.LittleEndian.Uint32(msg[138:142]); got != systemTransferIndex {
		t.Fatalf("instruction index = %d, want %d", got, systemTransferIndex)
	}
	if got := binary.LittleEndian.Uint64(msg[142:150]); got != lamports {
		t.Fatalf("lamports = %d, want %d", got, lamports)
	}
	if len(msg) != 150 {
		t.Fatalf("message length = %d, want 150", len(msg))
	}
}

func TestBuildTransferTxRejectsBadBlockhash(t *testing.T) {
	priv, from := testSigner(t)
	var to [32]byte

	if _, err := BuildTransferTx(priv, from, to, 1, "not-base58-0OIl"); err == nil {
		t.Fatalf("expected error for invalid base58 blockhash")
	}
	if _, err := BuildTransferTx(priv, from, to, 1, base58.Encode([]byte("short"))); err == nil {
		t.Fatalf("expected error for short blockhash")
	}
}
