package miner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/yoshhhhh372-hash/ore-miner/internal/ledger"
	"github.com/yoshhhhh372-hash/ore-miner/internal/snapshot"
)

// Deployer submits one tile deployment and returns the transaction
// signature. Implementations may be slow or fail per call; the loop treats
// every call independently.
type Deployer interface {
	Deploy(ctx context.Context, tileID int, amountSol float64) (string, error)
}

// SnapshotSource yields the current round view. It must never fail; at
// worst it returns the fallback snapshot.
type SnapshotSource interface {
	Latest(ctx context.Context) *snapshot.Snapshot
}

// PickFunc and ProfitFunc are the pluggable strategy surface. Both must be
// deterministic and free of I/O.
type (
	PickFunc   func(*snapshot.Snapshot) []int
	ProfitFunc func(tiles []int) float64
)

// Options holds the loop's run parameters.
type Options struct {
	// DryRun simulates deployments without touching the deployer.
	DryRun bool
	// Rounds bounds the number of iterations; 0 runs until the context is
	// canceled.
	Rounds int
	// Sleep is the inter-round pacing delay, floored at zero.
	Sleep time.Duration
	// UnitSol is the fixed amount committed per chosen tile.
	UnitSol float64
}

// Config wires a Loop's collaborators together.
type Config struct {
	Snapshots      SnapshotSource
	PickTiles      PickFunc
	SimulateProfit ProfitFunc

	// Deployer may be nil: live mode then reports a deploy-configuration
	// failure each acting phase instead of silently downgrading to dry-run.
	Deployer Deployer

	// Recorder receives one ledger entry per round. Nil disables recording.
	Recorder ledger.Recorder

	// Wake optionally ends a pacing delay early, e.g. when a watcher saw
	// the round account change. Nil keeps pacing purely timed.
	Wake <-chan struct{}

	Options Options
}

// Loop is the round-by-round decision state machine: fetch a snapshot,
// pick tiles, act, record profit, pace, repeat. It is strictly sequential;
// nothing in it runs concurrently.
type Loop struct {
	snapshots SnapshotSource
	pick      PickFunc
	profit    ProfitFunc
	deployer  Deployer
	recorder  ledger.Recorder
	wake      <-chan struct{}
	opts      Options

	totalPnL float64
}

func New(c Config) (*Loop, error) {
	if c.Snapshots == nil {
		return nil, fmt.Errorf("snapshot source required")
	}
	if c.PickTiles == nil || c.SimulateProfit == nil {
		return nil, fmt.Errorf("strategy functions required")
	}
	if c.Recorder == nil {
		c.Recorder = ledger.Noop{}
	}
	if c.Options.Sleep < 0 {
		c.Options.Sleep = 0
	}
	if c.Options.UnitSol <= 0 {
		c.Options.UnitSol = 0.01
	}
	return &Loop{
		snapshots: c.Snapshots,
		pick:      c.PickTiles,
		profit:    c.SimulateProfit,
		deployer:  c.Deployer,
		recorder:  c.Recorder,
		wake:      c.Wake,
		opts:      c.Options,
	}, nil
}

// Run executes rounds until the configured bound is reached or ctx is
// canceled, and returns the cumulative PnL. The accumulator starts at zero
// for every Run; history lives in the ledger, not here.
func (l *Loop) Run(ctx context.Context) float64 {
	log.Printf("[info] starting mining loop (mode=%s rounds=%s sleep=%s unit=%.4f SOL)",
		modeString(l.opts.DryRun), roundsString(l.opts.Rounds), l.opts.Sleep, l.opts.UnitSol)

	l.totalPnL = 0
	for round := 1; l.opts.Rounds == 0 || round <= l.opts.Rounds; round++ {
		if ctx.Err() != nil {
			log.Printf("[info] stopping after %d round(s)", round-1)
			break
		}

		snap := l.snapshots.Latest(ctx)
		tiles := l.pick(snap)
		l.act(ctx, tiles)

		profit := l.profit(tiles)
		l.totalPnL += profit
		log.Printf("[round %d] chosen=%v profit=%.4f total_pnl=%.4f", round, tiles, profit, l.totalPnL)

		rec := ledger.Record{
			TsMs:             time.Now().UnixMilli(),
			RoundID:          snap.RoundID,
			ChosenTiles:      tiles,
			RoundProfit:      profit,
			CumulativeProfit: l.totalPnL,
		}
		if err := l.recorder.Append(rec); err != nil {
			// Losing one ledger entry must not stop mining.
			log.Printf("[warn] ledger append failed: %v", err)
		}

		if l.opts.Rounds != 0 && round == l.opts.Rounds {
			break
		}
		l.pace(ctx)
	}
	return l.totalPnL
}

// act dispatches one round's deployments. Per-tile failures are isolated:
// a failed tile never blocks the remaining ones and never aborts the round.
func (l *Loop) act(ctx context.Context, tiles []int) {
	if len(tiles) == 0 {
		return
	}
	if l.opts.DryRun {
		for _, tile := range tiles {
			log.Printf("[dry-run] would deploy tile %d with %.4f SOL", tile, l.opts.UnitSol)
		}
		return
	}
	if l.deployer == nil {
		log.Printf("[error] live mode without deploy configuration; %d tile(s) not deployed this round", len(tiles))
		return
	}
	for _, tile := range tiles {
		sig, err := l.deployer.Deploy(ctx, tile, l.opts.UnitSol)
		if err != nil {
			log.Printf("[warn] %v", err)
			continue
		}
		log.Printf("[tx] tile %d deployed: %s", tile, sig)
	}
}

func (l *Loop) pace(ctx context.Context) {
	if l.opts.Sleep <= 0 {
		return
	}
	t := time.NewTimer(l.opts.Sleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	case <-l.wake:
		log.Printf("[info] round account changed; waking early")
	}
}
