package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/shamank/shdw-sdk-go/internal/metrics"
	"github.com/shamank/shdw-sdk-go/pkg/instruction"
)

// State is a stage of a submission.
type State int

const (
	StateBuilt State = iota
	StateSigned
	StateSent
	StateConfirmed
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateSigned:
		return "signed"
	case StateSent:
		return "sent"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Receipt describes a confirmed submission.
type Receipt struct {
	Hash     common.Hash
	State    State
	Attempts int
}

// SubmitError is returned for every submission that did not confirm. Hash is
// set once the transaction was sent, so a timed-out submission can be
// looked up or resubmitted by the caller.
type SubmitError struct {
	State    State
	Hash     common.Hash
	Attempts int
	Reason   string
	Err      error
}

func (e *SubmitError) Error() string {
	msg := fmt.Sprintf("submit %s: %v", e.State, e.Err)
	if e.Hash != (common.Hash{}) {
		msg += " (tx " + e.Hash.Hex() + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *SubmitError) Unwrap() error { return e.Err }

// BackoffFactory returns a fresh policy for one confirmation wait.
type BackoffFactory func() backoff.BackOff

// ExponentialBackoff returns a BackoffFactory growing from initial to ceiling.
func ExponentialBackoff(initial, ceiling time.Duration) BackoffFactory {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = ceiling
		b.Reset()
		return b
	}
}

// SubmitterOptions tune confirmation polling. Zero values take defaults.
type SubmitterOptions struct {
	ChainID *big.Int
	// MaxAttempts bounds status reads per submission. Default 30.
	MaxAttempts int
	// Backoff spaces status reads. Default: exponential 500ms..5s.
	Backoff BackoffFactory
	// CoSigners sign alongside the caller's signer when instructions need them.
	CoSigners []Signer
}

// Submitter sends transactions and waits for them to reach a terminal state.
type Submitter struct {
	ledger Ledger
	opts   SubmitterOptions
}

// NewSubmitter returns a Submitter over ledger.
func NewSubmitter(ledger Ledger, opts SubmitterOptions) *Submitter {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 30
	}
	if opts.Backoff == nil {
		opts.Backoff = ExponentialBackoff(500*time.Millisecond, 5*time.Second)
	}
	if opts.ChainID == nil {
		opts.ChainID = new(big.Int)
	}
	return &Submitter{ledger: ledger, opts: opts}
}

// Ledger returns the underlying transport.
func (s *Submitter) Ledger() Ledger { return s.ledger }

// Submit builds, signs and sends one transaction carrying ixs, then polls its
// status. The transaction is sent exactly once. Ledger rejections wrap
// ErrLedgerRejected; an exhausted poll budget or a cancelled context after
// the send wraps ErrLedgerTimeout. A send that fails in transport is polled
// like a successful one, since the ledger may still have taken it.
func (s *Submitter) Submit(ctx context.Context, signer Signer, ixs ...*instruction.Instruction) (*Receipt, error) {
	if len(ixs) == 0 {
		return nil, &SubmitError{State: StateBuilt, Err: errors.New("no instructions")}
	}
	blockhash, err := s.ledger.RecentBlockhash(ctx)
	if err != nil {
		zap.L().Error("Failed to get recent blockhash", zap.Error(err))
		return nil, &SubmitError{State: StateBuilt, Err: err}
	}
	tx := &Transaction{
		ChainID:         s.opts.ChainID,
		Payer:           signer.Address(),
		RecentBlockhash: blockhash,
		Instructions:    ixs,
	}

	signers := append([]Signer{signer}, s.opts.CoSigners...)
	stx, err := SignTransaction(tx, signers...)
	if err != nil {
		return nil, &SubmitError{State: StateBuilt, Err: err}
	}
	raw, err := stx.Encode()
	if err != nil {
		return nil, &SubmitError{State: StateSigned, Err: err}
	}
	hash, err := stx.Hash()
	if err != nil {
		return nil, &SubmitError{State: StateSigned, Err: err}
	}

	started := time.Now()
	sent, err := s.ledger.SendTransaction(ctx, raw)
	switch {
	case err == nil:
		hash = sent
		zap.L().Debug("Transaction sent", zap.String("hash", hash.Hex()), zap.String("instruction", ixs[0].Name))
	case errors.Is(err, ErrLedgerRejected):
		zap.L().Error("Transaction rejected", zap.String("instruction", ixs[0].Name), zap.Error(err))
		metrics.Ledger().ObserveSubmission(StateFailed.String(), 0, time.Since(started))
		return nil, &SubmitError{State: StateFailed, Hash: hash, Err: err}
	case ctx.Err() != nil:
		serr := timedOut(hash, 0, err)
		metrics.Ledger().ObserveSubmission(serr.State.String(), 0, time.Since(started))
		return nil, serr
	default:
		// The ledger may have accepted the transaction before the transport
		// failed; its status decides.
		zap.L().Warn("Send failed, polling status", zap.String("hash", hash.Hex()), zap.String("instruction", ixs[0].Name), zap.Error(err))
	}

	receipt, err := s.WaitForTransaction(ctx, hash)
	attempts := 0
	state := StateConfirmed
	if receipt != nil {
		attempts = receipt.Attempts
	}
	var serr *SubmitError
	if errors.As(err, &serr) {
		attempts = serr.Attempts
		state = serr.State
	}
	metrics.Ledger().ObserveSubmission(state.String(), attempts, time.Since(started))
	return receipt, err
}

// WaitForTransaction polls the status of hash until it is terminal, the poll
// budget runs out, or ctx is done. Read errors count against the budget.
func (s *Submitter) WaitForTransaction(ctx context.Context, hash common.Hash) (*Receipt, error) {
	b := s.opts.Backoff()
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		st, err := s.ledger.TransactionStatus(ctx, hash)
		switch {
		case err == nil && st.Status == StatusConfirmed:
			return &Receipt{Hash: hash, State: StateConfirmed, Attempts: attempt}, nil
		case err == nil && st.Status == StatusFailed:
			zap.L().Warn("Transaction failed", zap.String("hash", hash.Hex()), zap.String("reason", st.Reason))
			return nil, &SubmitError{State: StateFailed, Hash: hash, Attempts: attempt, Reason: st.Reason, Err: ErrLedgerRejected}
		case err != nil:
			if ctx.Err() != nil {
				return nil, timedOut(hash, attempt, ctx.Err())
			}
			lastErr = err
			zap.L().Debug("Status read failed", zap.String("hash", hash.Hex()), zap.Int("attempt", attempt), zap.Error(err))
		}

		if attempt == s.opts.MaxAttempts {
			break
		}
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return nil, timedOut(hash, attempt, lastErr)
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, timedOut(hash, attempt, ctx.Err())
		}
	}
	return nil, timedOut(hash, s.opts.MaxAttempts, lastErr)
}

func timedOut(hash common.Hash, attempts int, cause error) *SubmitError {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	zap.L().Warn("Transaction confirmation timed out", zap.String("hash", hash.Hex()), zap.Int("attempts", attempts))
	return &SubmitError{State: StateTimedOut, Hash: hash, Attempts: attempts, Reason: reason, Err: ErrLedgerTimeout}
}

// FetchAccount reads the raw data of addr.
func (s *Submitter) FetchAccount(ctx context.Context, addr common.Address) ([]byte, error) {
	return s.ledger.AccountInfo(ctx, addr)
}
