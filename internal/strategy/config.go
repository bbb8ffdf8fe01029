package strategy

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/yoshhhhh372-hash/ore-miner/internal/orestate"
)

// Config tunes the default tile-picking heuristic. All knobs are plain data
// so a loaded Config fully determines the engine's decisions.
type Config struct {
	// TileCount is how many tiles to choose per round. A negative value
	// means "deploy nothing", which is a legal decision every round.
	TileCount int `yaml:"tile_count"`

	// CrowdWeight scales the penalty applied per SOL already deployed on a
	// tile. Higher values chase emptier tiles harder.
	CrowdWeight float64 `yaml:"crowd_weight"`

	// MotherlodeThresholdSol and MotherlodeBonusTiles widen the spread when
	// the jackpot pool is large.
	MotherlodeThresholdSol float64 `yaml:"motherlode_threshold_sol"`
	MotherlodeBonusTiles   int     `yaml:"motherlode_bonus_tiles"`

	// StakeSol and PayoutMultiplier drive the per-round profit simulation.
	StakeSol         float64 `yaml:"stake_sol"`
	PayoutMultiplier float64 `yaml:"payout_multiplier"`
}

// LoadConfig reads tuning from a YAML file, then applies environment
// variable overrides, then fills defaults. A missing file is not an error;
// the defaults stand on their own.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read strategy config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse strategy config: %w", err)
			}
		}
	}

	if v := os.Getenv("ORE_TILE_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ORE_TILE_COUNT %q: %w", v, err)
		}
		cfg.TileCount = n
	}
	if v := os.Getenv("ORE_STAKE_SOL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ORE_STAKE_SOL %q: %w", v, err)
		}
		cfg.StakeSol = f
	}

	if cfg.TileCount == 0 {
		cfg.TileCount = 3
	}
	if cfg.TileCount < 0 {
		cfg.TileCount = 0
	}
	if cfg.TileCount > orestate.NumTiles {
		cfg.TileCount = orestate.NumTiles
	}
	if cfg.CrowdWeight <= 0 {
		cfg.CrowdWeight = 1.0
	}
	if cfg.MotherlodeThresholdSol <= 0 {
		cfg.MotherlodeThresholdSol = 10
	}
	if cfg.MotherlodeBonusTiles == 0 {
		cfg.MotherlodeBonusTiles = 2
	}
	if cfg.MotherlodeBonusTiles < 0 {
		cfg.MotherlodeBonusTiles = 0
	}
	if cfg.StakeSol <= 0 {
		cfg.StakeSol = 0.01
	}
	if cfg.PayoutMultiplier <= 0 {
		cfg.PayoutMultiplier = 24.0
	}
	return cfg, nil
}
