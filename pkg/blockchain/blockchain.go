// Package blockchain submits storage program transactions to the ledger and
// waits for their confirmation. It defines the Ledger transport interface with
// a JSON-RPC and a gRPC implementation, the signing primitives, and the
// Submitter that drives one transaction from build to a terminal state.
package blockchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrLedgerRejected is returned when the ledger refuses a transaction,
	// either at send time or by reporting it failed. It is never retried.
	ErrLedgerRejected = errors.New("ledger rejected transaction")
	// ErrLedgerTimeout is returned when a sent transaction did not reach a
	// terminal state within the poll budget. The transaction may still land.
	ErrLedgerTimeout = errors.New("ledger confirmation timed out")
	// ErrAccountNotFound is returned by Ledger.AccountInfo for unknown addresses.
	ErrAccountNotFound = errors.New("account not found")
)

// Status is the ledger-reported state of a sent transaction.
type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// TxStatus is a status read. Reason is set for failed transactions.
type TxStatus struct {
	Status Status
	Reason string
}

// Ledger is the transaction submission service.
type Ledger interface {
	// RecentBlockhash returns a recent block hash to anchor a transaction.
	RecentBlockhash(ctx context.Context) (common.Hash, error)
	// SendTransaction submits a signed, encoded transaction and returns its
	// hash. Send-time simulation failures wrap ErrLedgerRejected.
	SendTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	// TransactionStatus reports the state of a sent transaction. Unknown
	// transactions are pending.
	TransactionStatus(ctx context.Context, hash common.Hash) (TxStatus, error)
	// AccountInfo returns the raw data of the account at addr or
	// ErrAccountNotFound.
	AccountInfo(ctx context.Context, addr common.Address) ([]byte, error)
}
