package strategy

import (
	"sort"

	"github.com/yoshhhhh372-hash/ore-miner/internal/orestate"
	"github.com/yoshhhhh372-hash/ore-miner/internal/snapshot"
)

// Engine is the default deterministic tile picker: it spreads the stake over
// the least-crowded tiles, widening the spread when the motherlode is large.
// Engines do no I/O and no randomness; identical snapshots always map to
// identical decisions, so a run can be replayed from its ledger.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// PickTiles returns the chosen tile ids for one round, ordered by
// preference. The result has no duplicates and may be empty.
func (e *Engine) PickTiles(snap *snapshot.Snapshot) []int {
	if snap == nil || len(snap.Tiles) == 0 {
		return nil
	}

	count := e.cfg.TileCount
	if float64(snap.Motherlode)/orestate.LamportsPerSol >= e.cfg.MotherlodeThresholdSol {
		count += e.cfg.MotherlodeBonusTiles
	}
	if count > len(snap.Tiles) {
		count = len(snap.Tiles)
	}
	if count <= 0 {
		return nil
	}

	ranked := make([]snapshot.Tile, len(snap.Tiles))
	copy(ranked, snap.Tiles)
	sort.SliceStable(ranked, func(i, j int) bool {
		si := -e.cfg.CrowdWeight * ranked[i].SolDeployed
		sj := -e.cfg.CrowdWeight * ranked[j].SolDeployed
		if si != sj {
			return si > sj
		}
		return ranked[i].ID < ranked[j].ID
	})

	tiles := make([]int, 0, count)
	for _, tile := range ranked[:count] {
		tiles = append(tiles, tile.ID)
	}
	return tiles
}

// SimulateProfit estimates the round's signed PnL in SOL for a chosen tile
// set. The estimate assumes a uniform hit chance across the board and does
// not reconcile with on-chain settlement.
func (e *Engine) SimulateProfit(tiles []int) float64 {
	if len(tiles) == 0 {
		return 0
	}
	perTileEdge := e.cfg.PayoutMultiplier/orestate.NumTiles - 1.0
	return float64(len(tiles)) * e.cfg.StakeSol * perTileEdge
}
