package blockchain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// scriptedLedger replays a fixed sequence of status reads.
type scriptedLedger struct {
	mu         sync.Mutex
	sendErr    error
	statuses   []TxStatus
	statusErrs []error
	sends      int
	polls      int
	lastRaw    []byte
	lastPolled common.Hash
}

func (l *scriptedLedger) RecentBlockhash(context.Context) (common.Hash, error) {
	return common.HexToHash("0xabc"), nil
}

func (l *scriptedLedger) SendTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sends++
	l.lastRaw = raw
	if l.sendErr != nil {
		return common.Hash{}, l.sendErr
	}
	return crypto.Keccak256Hash(raw), nil
}

func (l *scriptedLedger) TransactionStatus(_ context.Context, hash common.Hash) (TxStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastPolled = hash
	i := l.polls
	l.polls++
	if i < len(l.statusErrs) && l.statusErrs[i] != nil {
		return TxStatus{}, l.statusErrs[i]
	}
	if i < len(l.statuses) {
		return l.statuses[i], nil
	}
	return TxStatus{Status: StatusPending}, nil
}

func (l *scriptedLedger) AccountInfo(context.Context, common.Address) ([]byte, error) {
	return nil, ErrAccountNotFound
}

func fastBackoff() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }

func newTestSubmitter(l Ledger, attempts int) *Submitter {
	return NewSubmitter(l, SubmitterOptions{MaxAttempts: attempts, Backoff: fastBackoff})
}

func TestSubmitConfirmsAfterPending(t *testing.T) {
	l := &scriptedLedger{statuses: []TxStatus{{Status: StatusPending}, {Status: StatusPending}, {Status: StatusConfirmed}}}
	signer := newSigner(t)

	receipt, err := newTestSubmitter(l, 5).Submit(context.Background(), signer, testInstruction(signer.Address()))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt.State != StateConfirmed || receipt.Attempts != 3 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if receipt.Hash != crypto.Keccak256Hash(l.lastRaw) {
		t.Fatal("receipt hash must be the ledger-reported hash")
	}
	if l.sends != 1 {
		t.Fatalf("expected exactly one send, got %d", l.sends)
	}
}

func TestSubmitFailedStatusIsRejection(t *testing.T) {
	l := &scriptedLedger{statuses: []TxStatus{{Status: StatusPending}, {Status: StatusFailed, Reason: "insufficient stake"}}}
	signer := newSigner(t)

	_, err := newTestSubmitter(l, 5).Submit(context.Background(), signer, testInstruction(signer.Address()))
	if !errors.Is(err, ErrLedgerRejected) {
		t.Fatalf("expected ErrLedgerRejected, got %v", err)
	}
	var serr *SubmitError
	if !errors.As(err, &serr) || serr.State != StateFailed || serr.Reason != "insufficient stake" {
		t.Fatalf("unexpected error detail %+v", serr)
	}
	if l.sends != 1 || l.polls != 2 {
		t.Fatalf("sends/polls = %d/%d", l.sends, l.polls)
	}
}

func TestSubmitSendRejectionIsNotRetried(t *testing.T) {
	l := &scriptedLedger{sendErr: fmt.Errorf("%w: simulation failed", ErrLedgerRejected)}
	signer := newSigner(t)

	_, err := newTestSubmitter(l, 5).Submit(context.Background(), signer, testInstruction(signer.Address()))
	if !errors.Is(err, ErrLedgerRejected) {
		t.Fatalf("expected ErrLedgerRejected, got %v", err)
	}
	if l.sends != 1 || l.polls != 0 {
		t.Fatalf("sends/polls = %d/%d", l.sends, l.polls)
	}
}

func TestSubmitSendTransportErrorPollsStatus(t *testing.T) {
	l := &scriptedLedger{
		sendErr:  errors.New("connection reset by peer"),
		statuses: []TxStatus{{Status: StatusPending}, {Status: StatusConfirmed}},
	}
	signer := newSigner(t)

	receipt, err := newTestSubmitter(l, 5).Submit(context.Background(), signer, testInstruction(signer.Address()))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	want := crypto.Keccak256Hash(l.lastRaw)
	if receipt.Hash != want || l.lastPolled != want {
		t.Fatalf("receipt/polled hash = %s/%s, want %s", receipt.Hash.Hex(), l.lastPolled.Hex(), want.Hex())
	}
	if l.sends != 1 || l.polls != 2 {
		t.Fatalf("sends/polls = %d/%d", l.sends, l.polls)
	}
}

func TestSubmitSendTransportErrorTimesOutWithHash(t *testing.T) {
	l := &scriptedLedger{sendErr: errors.New("connection reset by peer")}
	signer := newSigner(t)

	_, err := newTestSubmitter(l, 3).Submit(context.Background(), signer, testInstruction(signer.Address()))
	if !errors.Is(err, ErrLedgerTimeout) {
		t.Fatalf("expected ErrLedgerTimeout, got %v", err)
	}
	if errors.Is(err, ErrLedgerRejected) {
		t.Fatal("a transport failure is not a rejection")
	}
	var serr *SubmitError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SubmitError, got %T", err)
	}
	if serr.State != StateTimedOut || serr.Hash != crypto.Keccak256Hash(l.lastRaw) {
		t.Fatalf("unexpected timeout detail %+v", serr)
	}
	if l.sends != 1 || l.polls != 3 {
		t.Fatalf("sends/polls = %d/%d", l.sends, l.polls)
	}
}

func TestSubmitTimesOutWithHash(t *testing.T) {
	l := &scriptedLedger{}
	signer := newSigner(t)

	_, err := newTestSubmitter(l, 4).Submit(context.Background(), signer, testInstruction(signer.Address()))
	if !errors.Is(err, ErrLedgerTimeout) {
		t.Fatalf("expected ErrLedgerTimeout, got %v", err)
	}
	var serr *SubmitError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SubmitError, got %T", err)
	}
	if serr.State != StateTimedOut || serr.Hash == (common.Hash{}) || serr.Attempts != 4 {
		t.Fatalf("unexpected timeout detail %+v", serr)
	}
	if l.sends != 1 || l.polls != 4 {
		t.Fatalf("sends/polls = %d/%d", l.sends, l.polls)
	}
}

func TestStatusErrorsCountAgainstBudget(t *testing.T) {
	boom := errors.New("connection reset")
	l := &scriptedLedger{
		statusErrs: []error{boom, boom},
		statuses:   []TxStatus{{}, {}, {Status: StatusConfirmed}},
	}
	signer := newSigner(t)

	receipt, err := newTestSubmitter(l, 3).Submit(context.Background(), signer, testInstruction(signer.Address()))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", receipt.Attempts)
	}

	l = &scriptedLedger{statusErrs: []error{boom, boom, boom}}
	_, err = newTestSubmitter(l, 3).Submit(context.Background(), signer, testInstruction(signer.Address()))
	if !errors.Is(err, ErrLedgerTimeout) {
		t.Fatalf("expected ErrLedgerTimeout after failing reads, got %v", err)
	}
}

func TestSubmitCancelledWhileWaiting(t *testing.T) {
	l := &scriptedLedger{}
	signer := newSigner(t)
	s := NewSubmitter(l, SubmitterOptions{
		MaxAttempts: 100,
		Backoff:     func() backoff.BackOff { return backoff.NewConstantBackOff(time.Hour) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := s.Submit(ctx, signer, testInstruction(signer.Address()))
	if !errors.Is(err, ErrLedgerTimeout) {
		t.Fatalf("expected ErrLedgerTimeout, got %v", err)
	}
	var serr *SubmitError
	if errors.As(err, &serr) && serr.Hash == (common.Hash{}) {
		t.Fatal("hash must be preserved after send")
	}
}

func TestSubmitMissingCoSigner(t *testing.T) {
	l := &scriptedLedger{}
	signer := newSigner(t)
	other := newSigner(t)

	_, err := newTestSubmitter(l, 3).Submit(context.Background(), signer, testInstruction(signer.Address(), other.Address()))
	if err == nil {
		t.Fatal("expected error for missing co-signer")
	}
	if l.sends != 0 {
		t.Fatal("nothing must be sent without every signature")
	}

	s := NewSubmitter(l, SubmitterOptions{MaxAttempts: 1, Backoff: fastBackoff, CoSigners: []Signer{other}})
	l.statuses = []TxStatus{{Status: StatusConfirmed}}
	if _, err := s.Submit(context.Background(), signer, testInstruction(signer.Address(), other.Address())); err != nil {
		t.Fatalf("Submit with co-signer: %v", err)
	}
}

func TestStateString(t *testing.T) {
	if StateTimedOut.String() != "timed_out" || StatusFailed.String() != "failed" {
		t.Fatal("unexpected state names")
	}
}
