package snapshot

import (
	"context"
	"log"

	"github.com/yoshhhhh372-hash/ore-miner/internal/orestate"
	"github.com/yoshhhhh372-hash/ore-miner/internal/solrpc"
)

// Tile is one of the 25 deployable slots of a round, with its deployed
// amount converted to SOL.
type Tile struct {
	ID          int     `json:"id"`
	SolDeployed float64 `json:"sol_deployed"`
}

// Snapshot is the immutable per-iteration view of the most recent round.
// Motherlode and TotalDeployed stay in lamports.
type Snapshot struct {
	RoundID       uint64 `json:"round_id"`
	Tiles         []Tile `json:"tiles"`
	Motherlode    uint64 `json:"motherlode"`
	TotalDeployed uint64 `json:"total_deployed"`
}

// AccountSource fetches the raw accounts owned by a program.
type AccountSource interface {
	GetProgramAccounts(ctx context.Context, programID string) ([]solrpc.ProgramAccount, error)
}

// Builder turns program account scans into round snapshots. A nil source is
// a valid configuration: every scan then yields the fallback snapshot.
type Builder struct {
	source    AccountSource
	programID string
}

func NewBuilder(source AccountSource, programID string) *Builder {
	return &Builder{source: source, programID: programID}
}

// Fallback is the snapshot used when no round account could be decoded.
// The loop must always have something to decide on.
func Fallback() *Snapshot {
	return &Snapshot{
		RoundID: 0,
		Tiles:   []Tile{{ID: 1, SolDeployed: 0.1}},
	}
}

// FromRound converts a decoded round into a snapshot, expanding the
// deployed lamports per tile into (tile_id, SOL) pairs indexed 1..25.
func FromRound(r *orestate.Round) *Snapshot {
	tiles := make([]Tile, orestate.NumTiles)
	for i, lamports := range r.Deployed {
		tiles[i] = Tile{
			ID:          i + 1,
			SolDeployed: float64(lamports) / orestate.LamportsPerSol,
		}
	}
	return &Snapshot{
		RoundID:       r.Id,
		Tiles:         tiles,
		Motherlode:    r.Motherlode,
		TotalDeployed: r.TotalDeployed,
	}
}

// Latest scans all program accounts and returns a snapshot of the round
// with the highest id. It never fails: transport errors, undecodable
// accounts and empty scans all degrade to the fallback snapshot. One bad
// account never aborts the scan.
func (b *Builder) Latest(ctx context.Context) *Snapshot {
	rounds, skipped := b.scan(ctx)
	if len(rounds) > 0 && skipped > 0 {
		log.Printf("[warn] skipped %d undecodable account(s)", skipped)
	}
	if len(rounds) == 0 {
		log.Printf("[warn] no round accounts decoded; using fallback snapshot")
		return Fallback()
	}

	latest := rounds[0]
	for _, r := range rounds[1:] {
		if r.Id > latest.Id {
			latest = r
		}
	}

	log.Printf("[ore] round #%d | total_deployed=%.4f SOL | motherlode=%.4f SOL",
		latest.Id,
		float64(latest.TotalDeployed)/orestate.LamportsPerSol,
		float64(latest.Motherlode)/orestate.LamportsPerSol,
	)
	return FromRound(latest)
}

// scan folds over the account listing, producing the decodable rounds and a
// count of skipped entries.
func (b *Builder) scan(ctx context.Context) ([]*orestate.Round, int) {
	if b.source == nil {
		log.Printf("[warn] account source unavailable; returning no round data")
		return nil, 0
	}

	accounts, err := b.source.GetProgramAccounts(ctx, b.programID)
	if err != nil {
		log.Printf("[warn] program account scan failed: %v", err)
		return nil, 0
	}

	var rounds []*orestate.Round
	skipped := 0
	for _, acc := range accounts {
		raw, err := orestate.NormalizeAccountJSON(acc.Data)
		if err != nil {
			log.Printf("[warn] account %s: %v; skipping", acc.Pubkey, err)
			skipped++
			continue
		}
		r, err := orestate.DecodeRound(raw)
		if err != nil {
			log.Printf("[warn] account %s: %v; skipping", acc.Pubkey, err)
			skipped++
			continue
		}
		rounds = append(rounds, r)
	}
	return rounds, skipped
}
