package blockchain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

type ledgerService struct {
	reject   bool
	statuses map[common.Hash]*RPCTransactionStatus
	accounts map[common.Address]*RPCAccountInfo
}

func (s *ledgerService) GetLatestBlockhash() common.Hash {
	return common.HexToHash("0x1234")
}

func (s *ledgerService) SendTransaction(raw hexutil.Bytes) (common.Hash, error) {
	if s.reject {
		return common.Hash{}, errors.New("simulation failed: account is immutable")
	}
	return crypto.Keccak256Hash(raw), nil
}

func (s *ledgerService) GetTransactionStatus(hash common.Hash) *RPCTransactionStatus {
	return s.statuses[hash]
}

func (s *ledgerService) GetAccountInfo(addr common.Address) *RPCAccountInfo {
	return s.accounts[addr]
}

type ethService struct{}

func (ethService) ChainId() *hexutil.Big { return (*hexutil.Big)(big.NewInt(42)) }

func startRPC(t *testing.T, svc *ledgerService) *RPCLedger {
	t.Helper()
	srv := rpc.NewServer()
	if err := srv.RegisterName("ledger", svc); err != nil {
		t.Fatalf("register ledger: %v", err)
	}
	if err := srv.RegisterName("eth", ethService{}); err != nil {
		t.Fatalf("register eth: %v", err)
	}
	l := NewRPCLedger(rpc.DialInProc(srv))
	t.Cleanup(func() {
		l.Close()
		srv.Stop()
	})
	return l
}

func TestRPCLedger(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	confirmed := common.HexToHash("0x01")
	failed := common.HexToHash("0x02")
	svc := &ledgerService{
		statuses: map[common.Hash]*RPCTransactionStatus{
			confirmed: {Status: "finalized"},
			failed:    {Status: "failed", Err: "custom program error: 0x1"},
		},
		accounts: map[common.Address]*RPCAccountInfo{owner: {Owner: testProgram, Data: []byte{1, 2, 3}}},
	}
	l := startRPC(t, svc)
	ctx := context.Background()

	h, err := l.RecentBlockhash(ctx)
	if err != nil || h != common.HexToHash("0x1234") {
		t.Fatalf("RecentBlockhash = %s, %v", h.Hex(), err)
	}

	id, err := l.ChainID(ctx)
	if err != nil || id.Int64() != 42 {
		t.Fatalf("ChainID = %v, %v", id, err)
	}

	sent, err := l.SendTransaction(ctx, []byte{0xde, 0xad})
	if err != nil || sent != crypto.Keccak256Hash([]byte{0xde, 0xad}) {
		t.Fatalf("SendTransaction = %s, %v", sent.Hex(), err)
	}

	tests := []struct {
		hash common.Hash
		want Status
	}{
		{confirmed, StatusConfirmed},
		{failed, StatusFailed},
		{common.HexToHash("0x03"), StatusPending},
	}
	for _, tt := range tests {
		st, err := l.TransactionStatus(ctx, tt.hash)
		if err != nil {
			t.Fatalf("TransactionStatus(%s): %v", tt.hash.Hex(), err)
		}
		if st.Status != tt.want {
			t.Fatalf("TransactionStatus(%s) = %s, want %s", tt.hash.Hex(), st.Status, tt.want)
		}
	}

	data, err := l.AccountInfo(ctx, owner)
	if err != nil || len(data) != 3 {
		t.Fatalf("AccountInfo = %x, %v", data, err)
	}
	if _, err := l.AccountInfo(ctx, common.Address{}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestRPCLedgerSendRejected(t *testing.T) {
	l := startRPC(t, &ledgerService{reject: true})
	_, err := l.SendTransaction(context.Background(), []byte{1})
	if !errors.Is(err, ErrLedgerRejected) {
		t.Fatalf("expected ErrLedgerRejected, got %v", err)
	}
}
