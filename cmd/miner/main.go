package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/yoshhhhh372-hash/ore-miner/internal/dotenv"
	"github.com/yoshhhhh372-hash/ore-miner/internal/ledger"
	"github.com/yoshhhhh372-hash/ore-miner/internal/miner"
	"github.com/yoshhhhh372-hash/ore-miner/internal/orewatch"
	"github.com/yoshhhhh372-hash/ore-miner/internal/snapshot"
	"github.com/yoshhhhh372-hash/ore-miner/internal/solrpc"
	"github.com/yoshhhhh372-hash/ore-miner/internal/strategy"
	"github.com/yoshhhhh372-hash/ore-miner/internal/wallet"
)

// DefaultProgramID is the Ore program this miner watches.
const DefaultProgramID = "oreV3EG1i9BEgiAJ8b177Z2S2rMarzak4NMv1kULvWv"

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	dryRunDefault := false
	if env := strings.TrimSpace(os.Getenv("ORE_DRY_RUN")); env != "" {
		v, err := strconv.ParseBool(env)
		if err != nil {
			log.Fatalf("[fatal] invalid ORE_DRY_RUN %q: %v", env, err)
		}
		dryRunDefault = v
	}
	sleepDefault := 5 * time.Second
	if env := strings.TrimSpace(os.Getenv("ORE_SLEEP")); env != "" {
		v, err := time.ParseDuration(env)
		if err != nil {
			log.Fatalf("[fatal] invalid ORE_SLEEP %q: %v", env, err)
		}
		sleepDefault = v
	}

	var (
		dryRunFlag         bool
		roundsFlag         int
		sleepFlag          time.Duration
		rpcURLFlag         string
		programFlag        string
		unitFlag           float64
		outFlag            string
		sqliteFlag         string
		strategyConfigFlag string
		keypairFlag        string
		deployToFlag       string
		watchFlag          bool
		watchURLFlag       string
	)
	flag.BoolVar(&dryRunFlag, "dry-run", dryRunDefault, "Skip real deployments and only log actions (ORE_DRY_RUN env)")
	flag.IntVar(&roundsFlag, "rounds", 0, "Number of rounds to execute (0 for unlimited)")
	flag.DurationVar(&sleepFlag, "sleep", sleepDefault, "Delay between rounds (ORE_SLEEP env)")
	flag.StringVar(&rpcURLFlag, "rpc-url", firstNonEmpty(os.Getenv("RPC_URL"), solrpc.DefaultURL), "Solana RPC endpoint (RPC_URL env)")
	flag.StringVar(&programFlag, "program", firstNonEmpty(os.Getenv("ORE_PROGRAM_ID"), DefaultProgramID), "Ore program id (ORE_PROGRAM_ID env)")
	flag.Float64Var(&unitFlag, "unit", 0.01, "SOL committed per chosen tile")
	flag.StringVar(&outFlag, "out", firstNonEmpty(os.Getenv("ORE_LEDGER_PATH"), "data/ledger.jsonl"), "Profit ledger path (JSONL; blank disables) (ORE_LEDGER_PATH env)")
	flag.StringVar(&sqliteFlag, "sqlite", os.Getenv("ORE_SQLITE_PATH"), "Optional SQLite ledger path (ORE_SQLITE_PATH env)")
	flag.StringVar(&strategyConfigFlag, "strategy-config", os.Getenv("ORE_STRATEGY_CONFIG"), "Optional strategy tuning YAML (ORE_STRATEGY_CONFIG env)")
	flag.StringVar(&keypairFlag, "keypair", os.Getenv("KEYPAIR_PATH"), "Signing keypair file for live mode (KEYPAIR_PATH env)")
	flag.StringVar(&deployToFlag, "deploy-to", os.Getenv("WALLET_ADDRESS"), "Deployment destination address for live mode (WALLET_ADDRESS env)")
	flag.BoolVar(&watchFlag, "watch", false, "Wake from pacing early when a round account changes")
	flag.StringVar(&watchURLFlag, "watch-url", os.Getenv("ORE_WS_URL"), "Websocket RPC endpoint for --watch (ORE_WS_URL env)")
	flag.Parse()

	if sleepFlag < 0 {
		sleepFlag = 0
	}

	strategyCfg, err := strategy.LoadConfig(strategyConfigFlag)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	engine := strategy.New(strategyCfg)

	client, err := solrpc.NewClient(rpcURLFlag)
	if err != nil {
		// The loop still runs on the fallback snapshot without a client.
		log.Printf("[warn] account source unavailable: %v", err)
		client = nil
	}

	log.Printf("Ore miner (program=%s)", programFlag)
	log.Printf("RPC: %s", rpcURLFlag)
	log.Printf("Mode: %s", modeString(dryRunFlag))
	log.Printf("Rounds: %s", roundsString(roundsFlag))
	log.Printf("Sleep: %s", sleepFlag)
	log.Printf("Unit: %.4f SOL", unitFlag)
	log.Printf("Strategy: tiles=%d crowd_weight=%.2f stake=%.4f", strategyCfg.TileCount, strategyCfg.CrowdWeight, strategyCfg.StakeSol)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-ctx.Done():
		case <-sigCh:
			log.Printf("Shutting down…")
			cancel()
		}
	}()

	var deployer miner.Deployer
	if !dryRunFlag {
		d, err := buildDeployer(client, keypairFlag, deployToFlag)
		if err != nil {
			log.Printf("[warn] live mode requested but deploy configuration is incomplete: %v", err)
			log.Printf("[warn] deployments will fail until KEYPAIR_PATH and WALLET_ADDRESS are configured")
		} else {
			deployer = d
		}
	}

	recorder := buildRecorder(outFlag, sqliteFlag)
	defer func() {
		if err := recorder.Close(); err != nil {
			log.Printf("[warn] ledger close: %v", err)
		}
	}()

	var wake chan struct{}
	if watchFlag {
		if strings.TrimSpace(watchURLFlag) == "" {
			log.Printf("[warn] --watch set without --watch-url; watcher disabled")
		} else {
			log.Printf("Watch: %s", watchURLFlag)
			wake = make(chan struct{}, 1)
			go forwardWakeups(ctx, watchURLFlag, programFlag, wake)
		}
	}

	loop, err := miner.New(miner.Config{
		Snapshots:      snapshot.NewBuilder(clientOrNil(client), programFlag),
		PickTiles:      engine.PickTiles,
		SimulateProfit: engine.SimulateProfit,
		Deployer:       deployer,
		Recorder:       recorder,
		Wake:           wake,
		Options: miner.Options{
			DryRun:  dryRunFlag,
			Rounds:  roundsFlag,
			Sleep:   sleepFlag,
			UnitSol: unitFlag,
		},
	})
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	total := loop.Run(ctx)
	log.Printf("[info] final total pnl: %.4f SOL", total)
}

// clientOrNil keeps a typed nil *Client from turning into a non-nil
// interface inside the builder.
func clientOrNil(c *solrpc.Client) snapshot.AccountSource {
	if c == nil {
		return nil
	}
	return c
}

func buildDeployer(client *solrpc.Client, keypairPath, deployTo string) (miner.Deployer, error) {
	if client == nil {
		return nil, errNoRPC
	}
	key, err := wallet.LoadKeypair(keypairPath)
	if err != nil {
		return nil, err
	}
	dest, err := wallet.ParseAddress(deployTo)
	if err != nil {
		return nil, err
	}
	return solrpc.NewTransferDeployer(client, key, dest)
}

var errNoRPC = errors.New("no rpc client configured")

func buildRecorder(jsonlPath, sqlitePath string) ledger.Recorder {
	var recorders ledger.Multi
	if r := ledger.NewJSONL(jsonlPath); r != nil {
		log.Printf("Ledger: %s (JSONL)", jsonlPath)
		recorders = append(recorders, r)
	}
	if strings.TrimSpace(sqlitePath) != "" {
		r, err := ledger.NewSQLite(sqlitePath)
		if err != nil {
			log.Fatalf("[fatal] %v", err)
		}
		log.Printf("Ledger: %s (sqlite)", sqlitePath)
		recorders = append(recorders, r)
	}
	switch len(recorders) {
	case 0:
		return ledger.Noop{}
	case 1:
		return recorders[0]
	default:
		return recorders
	}
}

// forwardWakeups condenses watcher notifications into at most one pending
// wake signal; the loop only needs to know "something changed".
func forwardWakeups(ctx context.Context, url, programID string, wake chan<- struct{}) {
	notifs, errs := orewatch.Start(ctx, url, programID, orewatch.Options{})
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notifs:
			if !ok {
				return
			}
			select {
			case wake <- struct{}{}:
			default:
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("[warn] watch: %v", err)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func modeString(dryRun bool) string {
	if dryRun {
		return "dry-run"
	}
	return "live"
}

func roundsString(rounds int) string {
	if rounds <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(rounds)
}
