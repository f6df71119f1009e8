package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// JSON-RPC method names served by the ledger node.
const (
	methodLatestBlockhash   = "ledger_getLatestBlockhash"
	methodSendTransaction   = "ledger_sendTransaction"
	methodTransactionStatus = "ledger_getTransactionStatus"
	methodAccountInfo       = "ledger_getAccountInfo"
)

// RPCTransactionStatus is the JSON shape of a status read. A null result
// means the transaction is not known yet.
type RPCTransactionStatus struct {
	Status string `json:"status"`
	Err    string `json:"err,omitempty"`
}

// RPCAccountInfo is the JSON shape of an account read.
type RPCAccountInfo struct {
	Owner common.Address `json:"owner"`
	Data  hexutil.Bytes  `json:"data"`
}

// RPCLedger is a Ledger over go-ethereum's JSON-RPC client.
type RPCLedger struct {
	Client *rpc.Client
	eth    *ethclient.Client
}

// DialRPC connects to a ledger node at endpoint (http, ws or ipc).
func DialRPC(ctx context.Context, endpoint string) (*RPCLedger, error) {
	c, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		zap.L().Error("Failed to dial ledger", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, err
	}
	return NewRPCLedger(c), nil
}

// NewRPCLedger wraps an existing client.
func NewRPCLedger(c *rpc.Client) *RPCLedger {
	return &RPCLedger{Client: c, eth: ethclient.NewClient(c)}
}

// ChainID returns the chain id reported by the node.
func (l *RPCLedger) ChainID(ctx context.Context) (*big.Int, error) {
	return l.eth.ChainID(ctx)
}

// RecentBlockhash implements Ledger.
func (l *RPCLedger) RecentBlockhash(ctx context.Context) (common.Hash, error) {
	var h common.Hash
	if err := l.Client.CallContext(ctx, &h, methodLatestBlockhash); err != nil {
		return common.Hash{}, fmt.Errorf("%s: %w", methodLatestBlockhash, err)
	}
	return h, nil
}

// SendTransaction implements Ledger. Errors reported by the node itself, as
// opposed to transport failures, are treated as rejections.
func (l *RPCLedger) SendTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var h common.Hash
	err := l.Client.CallContext(ctx, &h, methodSendTransaction, hexutil.Bytes(raw))
	if err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return common.Hash{}, fmt.Errorf("%w: %s (code %d)", ErrLedgerRejected, rpcErr.Error(), rpcErr.ErrorCode())
		}
		return common.Hash{}, fmt.Errorf("%s: %w", methodSendTransaction, err)
	}
	return h, nil
}

// TransactionStatus implements Ledger.
func (l *RPCLedger) TransactionStatus(ctx context.Context, hash common.Hash) (TxStatus, error) {
	var res *RPCTransactionStatus
	if err := l.Client.CallContext(ctx, &res, methodTransactionStatus, hash); err != nil {
		return TxStatus{}, fmt.Errorf("%s: %w", methodTransactionStatus, err)
	}
	if res == nil {
		return TxStatus{Status: StatusPending}, nil
	}
	return parseStatus(res.Status, res.Err), nil
}

// AccountInfo implements Ledger.
func (l *RPCLedger) AccountInfo(ctx context.Context, addr common.Address) ([]byte, error) {
	var res *RPCAccountInfo
	if err := l.Client.CallContext(ctx, &res, methodAccountInfo, addr); err != nil {
		return nil, fmt.Errorf("%s: %w", methodAccountInfo, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr.Hex())
	}
	return res.Data, nil
}

// Close releases the connection.
func (l *RPCLedger) Close() {
	l.Client.Close()
}

func parseStatus(status, reason string) TxStatus {
	switch status {
	case "confirmed", "finalized":
		return TxStatus{Status: StatusConfirmed}
	case "failed":
		return TxStatus{Status: StatusFailed, Reason: reason}
	default:
		return TxStatus{Status: StatusPending}
	}
}
