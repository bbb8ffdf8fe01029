package strategy

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/yoshhhhh372-hash/ore-miner/internal/orestate"
	"github.com/yoshhhhh372-hash/ore-miner/internal/snapshot"
)

func boardSnapshot(deployed map[int]float64, motherlode uint64) *snapshot.Snapshot {
	tiles := make([]snapshot.Tile, orestate.NumTiles)
	for i := range tiles {
		tiles[i] = snapshot.Tile{ID: i + 1, SolDeployed: deployed[i+1]}
	}
	return &snapshot.Snapshot{RoundID: 1, Tiles: tiles, Motherlode: motherlode}
}

func defaultConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cfg
}

func TestPickTilesPrefersLeastCrowded(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.TileCount = 2

	snap := boardSnapshot(map[int]float64{}, 0)
	for i := range snap.Tiles {
		snap.Tiles[i].SolDeployed = 1.0
	}
	snap.Tiles[6].SolDeployed = 0.0  // tile 7
	snap.Tiles[18].SolDeployed = 0.1 // tile 19

	got := New(cfg).PickTiles(snap)
	want := []int{7, 19}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestPickTilesTieBreaksOnLowerID(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.TileCount = 3

	got := New(cfg).PickTiles(boardSnapshot(nil, 0))
	want := []int{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestPickTilesIsDeterministic(t *testing.T) {
	cfg := defaultConfig(t)
	snap := boardSnapshot(map[int]float64{3: 0.5, 12: 1.2, 20: 0.01}, 4_000_000_000)

	first := New(cfg).PickTiles(snap)
	for i := 0; i < 10; i++ {
		if got := New(cfg).PickTiles(snap); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: got %v want %v", i, got, first)
		}
	}

	seen := map[int]bool{}
	for _, id := range first {
		if id < 1 || id > orestate.NumTiles {
			t.Fatalf("tile id %d out of range", id)
		}
		if seen[id] {
			t.Fatalf("duplicate tile id %d in %v", id, first)
		}
		seen[id] = true
	}
}

func TestPickTilesMotherlodeWidensSpread(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.TileCount = 3
	cfg.MotherlodeBonusTiles = 2
	cfg.MotherlodeThresholdSol = 10

	small := New(cfg).PickTiles(boardSnapshot(nil, 9*orestate.LamportsPerSol))
	big := New(cfg).PickTiles(boardSnapshot(nil, 10*orestate.LamportsPerSol))
	if len(small) != 3 {
		t.Fatalf("got %d tiles below threshold, want 3", len(small))
	}
	if len(big) != 5 {
		t.Fatalf("got %d tiles at threshold, want 5", len(big))
	}
}

func TestPickTilesEmptyAndFallbackInputs(t *testing.T) {
	cfg := defaultConfig(t)
	eng := New(cfg)

	if got := eng.PickTiles(nil); got != nil {
		t.Fatalf("nil snapshot: got %v want nil", got)
	}
	if got := eng.PickTiles(&snapshot.Snapshot{}); got != nil {
		t.Fatalf("empty snapshot: got %v want nil", got)
	}

	// The fallback snapshot exposes a single tile; the pick must stay
	// within it.
	got := eng.PickTiles(snapshot.Fallback())
	if !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("fallback snapshot: got %v want [1]", got)
	}

	cfg.TileCount = -1
	if got := New(cfg).PickTiles(boardSnapshot(nil, 0)); got != nil {
		t.Fatalf("disabled picking: got %v want nil", got)
	}
}

func TestSimulateProfit(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.StakeSol = 0.01
	cfg.PayoutMultiplier = 24.0
	eng := New(cfg)

	if got := eng.SimulateProfit(nil); got != 0 {
		t.Fatalf("empty set profit = %v, want 0", got)
	}

	perTile := 0.01 * (24.0/orestate.NumTiles - 1.0)
	if got := eng.SimulateProfit([]int{1, 5, 9}); math.Abs(got-3*perTile) > 1e-12 {
		t.Fatalf("got %v want %v", got, 3*perTile)
	}
	if got := eng.SimulateProfit([]int{1})*3 - eng.SimulateProfit([]int{1, 2, 3}); math.Abs(got) > 1e-12 {
		t.Fatalf("profit is not additive per tile: diff %v", got)
	}
}

func TestLoadConfigFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	body := "tile_count: 5\ncrowd_weight: 2.5\nstake_sol: 0.02\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TileCount != 5 || cfg.CrowdWeight != 2.5 || cfg.StakeSol != 0.02 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.PayoutMultiplier != 24.0 {
		t.Fatalf("PayoutMultiplier default = %v, want 24.0", cfg.PayoutMultiplier)
	}

	t.Setenv("ORE_TILE_COUNT", "7")
	t.Setenv("ORE_STAKE_SOL", "0.005")
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TileCount != 7 || cfg.StakeSol != 0.005 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}

	t.Setenv("ORE_TILE_COUNT", "not-a-number")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for bad ORE_TILE_COUNT")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TileCount != 3 || cfg.StakeSol != 0.01 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}
