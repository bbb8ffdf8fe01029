package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/yoshhhhh372-hash/ore-miner/internal/dotenv"
	"github.com/yoshhhhh372-hash/ore-miner/internal/orestate"
	"github.com/yoshhhhh372-hash/ore-miner/internal/snapshot"
	"github.com/yoshhhhh372-hash/ore-miner/internal/solrpc"
)

const defaultProgramID = "oreV3EG1i9BEgiAJ8b177Z2S2rMarzak4NMv1kULvWv"

// roundinfo fetches and prints the current round snapshot once, without
// deciding or deploying anything.
func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var rpcURLFlag, programFlag string
	var allFlag bool
	flag.StringVar(&rpcURLFlag, "rpc-url", firstNonEmpty(os.Getenv("RPC_URL"), solrpc.DefaultURL), "Solana RPC endpoint (RPC_URL env)")
	flag.StringVar(&programFlag, "program", firstNonEmpty(os.Getenv("ORE_PROGRAM_ID"), defaultProgramID), "Ore program id (ORE_PROGRAM_ID env)")
	flag.BoolVar(&allFlag, "all", false, "Print every tile, not just the deployed ones")
	flag.Parse()

	client, err := solrpc.NewClient(rpcURLFlag)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	snap := snapshot.NewBuilder(client, programFlag).Latest(ctx)

	fmt.Printf("round_id: %d\n", snap.RoundID)
	fmt.Printf("motherlode: %.4f SOL (lamports=%d)\n", float64(snap.Motherlode)/orestate.LamportsPerSol, snap.Motherlode)
	fmt.Printf("total_deployed: %.4f SOL (lamports=%d)\n", float64(snap.TotalDeployed)/orestate.LamportsPerSol, snap.TotalDeployed)
	for _, tile := range snap.Tiles {
		if !allFlag && tile.SolDeployed == 0 {
			continue
		}
		fmt.Printf("tile %2d: %.4f SOL\n", tile.ID, tile.SolDeployed)
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
