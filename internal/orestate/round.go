package orestate

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// NumTiles is the number of deployable tiles in every Ore round.
const NumTiles = 25

// RoundSize is the exact byte length of the on-chain Round account layout.
// The layout is fixed-width little-endian; there are no length prefixes.
const RoundSize = 8 + NumTiles*8 + 32 + NumTiles*8 + 8 + 8 + 32 + 32 + 8 + 8 + 8 + 8

const LamportsPerSol = 1_000_000_000

// ErrTooShort is returned when account data cannot hold a full Round layout.
var ErrTooShort = errors.New("round data too short")

// Round mirrors the Ore program's on-chain Round account, field for field.
// All amounts are in lamports.
type Round struct {
	Id             uint64
	Deployed       [NumTiles]uint64
	SlotHash       [32]byte
	Counts         [NumTiles]uint64
	ExpiresAt      uint64
	Motherlode     uint64
	RentPayer      [32]byte
	TopMiner       [32]byte
	TopMinerReward uint64
	TotalDeployed  uint64
	TotalVaulted   uint64
	TotalWinnings  uint64
}

// cursor reads fixed-width fields from a byte slice at increasing offsets.
// Callers must bound-check the slice before constructing one; reads never
// go past the initial length check.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) u64() uint64 {
	v := binary.LittleEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v
}

func (c *cursor) blob32() (out [32]byte) {
	copy(out[:], c.buf[c.off:c.off+32])
	c.off += 32
	return out
}

// DecodeRound decodes the first RoundSize bytes of data into a Round.
// Trailing bytes are tolerated; on-chain accounts may be padded. Data
// shorter than RoundSize fails with ErrTooShort before any field is read.
func DecodeRound(data []byte) (*Round, error) {
	if len(data) < RoundSize {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrTooShort, len(data), RoundSize)
	}

	c := cursor{buf: data}
	r := &Round{}

	r.Id = c.u64()
	for i := range r.Deployed {
		r.Deployed[i] = c.u64()
	}
	r.SlotHash = c.blob32()
	for i := range r.Counts {
		r.Counts[i] = c.u64()
	}
	r.ExpiresAt = c.u64()
	r.Motherlode = c.u64()
	r.RentPayer = c.blob32()
	r.TopMiner = c.blob32()
	r.TopMinerReward = c.u64()
	r.TotalDeployed = c.u64()
	r.TotalVaulted = c.u64()
	r.TotalWinnings = c.u64()

	if c.off != RoundSize {
		return nil, fmt.Errorf("round layout consumed %d bytes, want %d", c.off, RoundSize)
	}
	return r, nil
}

// EncodeRound serializes r into its exact RoundSize-byte wire layout.
func EncodeRound(r *Round) []byte {
	buf := make([]byte, 0, RoundSize)
	u64 := func(v uint64) {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}

	u64(r.Id)
	for _, v := range r.Deployed {
		u64(v)
	}
	buf = append(buf, r.SlotHash[:]...)
	for _, v := range r.Counts {
		u64(v)
	}
	u64(r.ExpiresAt)
	u64(r.Motherlode)
	buf = append(buf, r.RentPayer[:]...)
	buf = append(buf, r.TopMiner[:]...)
	u64(r.TopMinerReward)
	u64(r.TotalDeployed)
	u64(r.TotalVaulted)
	u64(r.TotalWinnings)
	return buf
}
