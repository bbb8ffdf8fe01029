package solrpc

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mr-tron/base58"

	"github.com/yoshhhhh372-hash/ore-miner/internal/orestate"
)

// System program transfer instruction index.
const systemTransferIndex = 2

// BuildTransferTx serializes and signs a legacy Solana transaction holding a
// single system-program transfer of lamports from from to to. The result is
// base64 text ready for SendTransaction.
func BuildTransferTx(signer ed25519.PrivateKey, from, to [32]byte, lamports uint64, blockhashBase58 string) (string, error) {
	if len(signer) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("signer key has %d bytes, want %d", len(signer), ed25519.PrivateKeySize)
	}
	blockhash, err := base58.Decode(blockhashBase58)
	if err != nil {
		return "", fmt.Errorf("blockhash decode %q: %w", blockhashBase58, err)
	}
	if len(blockhash) != 32 {
		return "", fmt.Errorf("blockhash has %d bytes, want 32", len(blockhash))
	}

	// Instruction data: u32 instruction index + u64 lamports, little-endian.
	data := make([]byte, 0, 12)
	data = binary.LittleEndian.AppendUint32(data, systemTransferIndex)
	data = binary.LittleEndian.AppendUint64(data, lamports)

	var systemProgram [32]byte // all zeros

	// Legacy message: header, account keys, blockhash, instructions.
	// Key indices: 0 = from (signer, writable), 1 = to (writable),
	// 2 = system program (readonly).
	msg := make([]byte, 0, 256)
	msg = append(msg, 1, 0, 1)
	msg = appendCompactU16(msg, 3)
	msg = append(msg, from[:]...)
	msg = append(msg, to[:]...)
	msg = append(msg, systemProgram[:]...)
	msg = append(msg, blockhash...)
	msg = appendCompactU16(msg, 1)
	msg = append(msg, 2)
	msg = appendCompactU16(msg, 2)
	msg = append(msg, 0, 1)
	msg = appendCompactU16(msg, uint16(len(data)))
	msg = append(msg, data...)

	sig := ed25519.Sign(signer, msg)

	tx := make([]byte, 0, 1+len(sig)+len(msg))
	tx = appendCompactU16(tx, 1)
	tx = append(tx, sig...)
	tx = append(tx, msg...)

	return base64.StdEncoding.EncodeToString(tx), nil
}

// appendCompactU16 appends v in Solana's compact-u16 varint form.
func appendCompactU16(buf []byte, v uint16) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v&0x7f)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// TransferDeployer submits tile deployments as system transfers to a fixed
// destination, the way the original miner shipped. The Ore program's own
// deploy instruction can replace this without touching the loop.
type TransferDeployer struct {
	client *Client
	signer ed25519.PrivateKey
	from   [32]byte
	to     [32]byte
}

func NewTransferDeployer(client *Client, signer ed25519.PrivateKey, dest [32]byte) (*TransferDeployer, error) {
	if client == nil {
		return nil, fmt.Errorf("rpc client required")
	}
	if len(signer) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signer key has %d bytes, want %d", len(signer), ed25519.PrivateKeySize)
	}
	var from [32]byte
	copy(from[:], signer.Public().(ed25519.PublicKey))
	return &TransferDeployer{client: client, signer: signer, from: from, to: dest}, nil
}

// Deploy commits amountSol to one tile and returns the transaction
// signature. Each call fetches a fresh blockhash; calls are strictly
// sequential so signing never races the nonce.
func (d *TransferDeployer) Deploy(ctx context.Context, tileID int, amountSol float64) (string, error) {
	if tileID < 1 || tileID > orestate.NumTiles {
		return "", fmt.Errorf("tile id %d out of range 1..%d", tileID, orestate.NumTiles)
	}
	if amountSol <= 0 {
		return "", fmt.Errorf("deploy amount must be positive, got %v", amountSol)
	}
	lamports := uint64(math.Round(amountSol * orestate.LamportsPerSol))

	blockhash, err := d.client.LatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("deploy tile %d: %w", tileID, err)
	}
	txBase64, err := BuildTransferTx(d.signer, d.from, d.to, lamports, blockhash)
	if err != nil {
		return "", fmt.Errorf("deploy tile %d: %w", tileID, err)
	}
	sig, err := d.client.SendTransaction(ctx, txBase64)
	if err != nil {
		return "", fmt.Errorf("deploy tile %d: %w", tileID, err)
	}
	return sig, nil
}
