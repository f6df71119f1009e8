//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shamank/shdw-sdk-go/pkg/blockchain"
	"github.com/shamank/shdw-sdk-go/pkg/config"
	"github.com/shamank/shdw-sdk-go/pkg/sdk"
)

func TestLedgerRPCChainID(t *testing.T) {
	rpc := os.Getenv("SHDW_RPC_ADDR")
	if rpc == "" {
		t.Skip("SHDW_RPC_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ledger, err := blockchain.DialRPC(ctx, rpc)
	if err != nil {
		t.Fatalf("DialRPC error: %v", err)
	}
	defer ledger.Close()

	id, err := ledger.ChainID(ctx)
	if err != nil {
		t.Fatalf("ChainID error: %v", err)
	}
	if id == nil {
		t.Fatal("nil chain id")
	}
	if _, err := ledger.RecentBlockhash(ctx); err != nil {
		t.Fatalf("RecentBlockhash error: %v", err)
	}
}

func TestHealthcheck(t *testing.T) {
	cfg, err := config.Load(os.Getenv("SHDW_CONFIG"))
	if err != nil {
		t.Skipf("no usable config: %v", err)
	}
	drive, err := sdk.NewSDK(cfg)
	if err != nil {
		t.Fatalf("NewSDK error: %v", err)
	}
	defer drive.Close()

	if _, err := drive.Healthcheck().Ledger(); err != nil {
		t.Fatalf("ledger heartbeat: %v", err)
	}
	if err := drive.Healthcheck().Endpoint(); err != nil {
		t.Fatalf("endpoint heartbeat: %v", err)
	}
}
