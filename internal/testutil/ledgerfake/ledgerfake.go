// Package ledgerfake is an in-memory blockchain.Ledger that executes storage
// program instructions against account blobs, for tests.
package ledgerfake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/shamank/shdw-sdk-go/pkg/account"
	"github.com/shamank/shdw-sdk-go/pkg/blockchain"
	"github.com/shamank/shdw-sdk-go/pkg/instruction"
)

// Mode selects how the fake settles transactions.
type Mode int

const (
	// Settle executes transactions and confirms or fails them.
	Settle Mode = iota
	// Hold accepts transactions but leaves them pending forever.
	Hold
	// RejectSend refuses transactions at send time.
	RejectSend
)

// Ledger is safe for concurrent use.
type Ledger struct {
	Program common.Address

	mu       sync.Mutex
	mode     Mode
	accounts map[common.Address][]byte
	usage    map[common.Address]uint64
	statuses map[common.Hash]blockchain.TxStatus
	sent     []*blockchain.SignedTransaction
	// pendingPolls is the number of Pending reads before a status settles.
	pendingPolls int
	polls        map[common.Hash]int
}

// New returns an empty ledger for program.
func New(program common.Address) *Ledger {
	return &Ledger{
		Program:  program,
		accounts: make(map[common.Address][]byte),
		usage:    make(map[common.Address]uint64),
		statuses: make(map[common.Hash]blockchain.TxStatus),
		polls:    make(map[common.Hash]int),
	}
}

// SetMode switches settlement behavior for subsequent transactions.
func (l *Ledger) SetMode(m Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mode = m
}

// SetPendingPolls makes every status report Pending n times before settling.
func (l *Ledger) SetPendingPolls(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pendingPolls = n
}

// Put stores a raw account blob.
func (l *Ledger) Put(addr common.Address, blob []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[addr] = append([]byte(nil), blob...)
}

// Sent returns the transactions received so far.
func (l *Ledger) Sent() []*blockchain.SignedTransaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*blockchain.SignedTransaction(nil), l.sent...)
}

// AddUsage records n stored bytes on addr, as the upload service would.
func (l *Ledger) AddUsage(addr common.Address, n uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.usage[addr] += n
}

// StorageUsage implements storage.UsageReporter.
func (l *Ledger) StorageUsage(_ context.Context, addr common.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage[addr], nil
}

func (l *Ledger) RecentBlockhash(context.Context) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("block-%d", len(l.sent)))), nil
}

func (l *Ledger) SendTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	stx, err := blockchain.DecodeSignedTransaction(raw)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", blockchain.ErrLedgerRejected, err)
	}
	hash := crypto.Keccak256Hash(raw)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mode == RejectSend {
		return common.Hash{}, fmt.Errorf("%w: send refused", blockchain.ErrLedgerRejected)
	}
	if err := verifySignatures(stx); err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", blockchain.ErrLedgerRejected, err)
	}
	l.sent = append(l.sent, stx)
	if l.mode == Hold {
		l.statuses[hash] = blockchain.TxStatus{Status: blockchain.StatusPending}
		return hash, nil
	}

	if err := l.apply(stx); err != nil {
		l.statuses[hash] = blockchain.TxStatus{Status: blockchain.StatusFailed, Reason: err.Error()}
	} else {
		l.statuses[hash] = blockchain.TxStatus{Status: blockchain.StatusConfirmed}
	}
	return hash, nil
}

func (l *Ledger) TransactionStatus(_ context.Context, hash common.Hash) (blockchain.TxStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.statuses[hash]
	if !ok {
		return blockchain.TxStatus{}, errors.New("unknown transaction")
	}
	l.polls[hash]++
	if l.polls[hash] <= l.pendingPolls {
		return blockchain.TxStatus{Status: blockchain.StatusPending}, nil
	}
	return st, nil
}

func (l *Ledger) AccountInfo(_ context.Context, addr common.Address) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	blob, ok := l.accounts[addr]
	if !ok {
		return nil, blockchain.ErrAccountNotFound
	}
	return append([]byte(nil), blob...), nil
}

func verifySignatures(stx *blockchain.SignedTransaction) error {
	digest, err := stx.Tx.SigningHash()
	if err != nil {
		return err
	}
	required := stx.Tx.RequiredSigners()
	if len(required) != len(stx.Signatures) {
		return fmt.Errorf("%d signatures for %d signers", len(stx.Signatures), len(required))
	}
	for i, addr := range required {
		pub, err := crypto.SigToPub(digest.Bytes(), stx.Signatures[i])
		if err != nil {
			return err
		}
		if crypto.PubkeyToAddress(*pub) != addr {
			return fmt.Errorf("bad signature for %s", addr.Hex())
		}
	}
	return nil
}

// apply executes every instruction against a copy of the state and commits
// only if all succeed.
func (l *Ledger) apply(stx *blockchain.SignedTransaction) error {
	staged := make(map[common.Address][]byte)
	get := func(addr common.Address) ([]byte, bool) {
		if b, ok := staged[addr]; ok {
			return b, true
		}
		b, ok := l.accounts[addr]
		return b, ok
	}
	for _, ix := range stx.Tx.Instructions {
		if err := l.execute(ix, get, staged); err != nil {
			return err
		}
	}
	for addr, blob := range staged {
		l.accounts[addr] = blob
	}
	return nil
}

type getter func(common.Address) ([]byte, bool)

func (l *Ledger) execute(ix *instruction.Instruction, get getter, staged map[common.Address][]byte) error {
	if ix.Program != l.Program {
		return fmt.Errorf("unknown program %s", ix.Program.Hex())
	}
	if len(ix.Data) < 4 {
		return errors.New("short instruction data")
	}
	method, err := instruction.StorageProgramABI.MethodById(ix.Data[:4])
	if err != nil {
		return err
	}
	args, err := method.Inputs.Unpack(ix.Data[4:])
	if err != nil {
		return err
	}

	switch method.Name {
	case instruction.MethodInitializeAccount, instruction.MethodInitializeAccount2:
		return l.create(method.Name, ix, args, get, staged)
	}

	if len(ix.Accounts) < 2 {
		return errors.New("missing storage account")
	}
	addr := ix.Accounts[1].Address
	blob, ok := get(addr)
	if !ok {
		return fmt.Errorf("account %s not found", addr.Hex())
	}
	acct, err := account.Decode(blob)
	if err != nil {
		return err
	}

	switch method.Name {
	case instruction.MethodIncreaseStorage, instruction.MethodIncreaseStorage2:
		if acct.Immutable() {
			return errors.New("account is immutable")
		}
		grow(acct, args[0].(uint64))
	case instruction.MethodIncreaseImmutableStorage, instruction.MethodIncreaseImmutableStorage2:
		if !acct.Immutable() {
			return errors.New("account is mutable")
		}
		grow(acct, args[0].(uint64))
	case instruction.MethodDecreaseStorage, instruction.MethodDecreaseStorage2:
		if err := l.shrink(addr, acct, args[0].(uint64)); err != nil {
			return err
		}
	case instruction.MethodMakeAccountImmutable, instruction.MethodMakeAccountImmutable2:
		if acct.Immutable() {
			return errors.New("account is already immutable")
		}
		switch a := acct.(type) {
		case *account.V1Account:
			a.IsImmutable = true
		case *account.V2Account:
			a.IsImmutable = true
		}
	default:
		return fmt.Errorf("unsupported method %s", method.Name)
	}

	out, err := account.Encode(acct)
	if err != nil {
		return err
	}
	staged[addr] = out
	return nil
}

func (l *Ledger) create(name string, ix *instruction.Instruction, args []interface{}, get getter, staged map[common.Address][]byte) error {
	if len(ix.Accounts) < 5 {
		return errors.New("missing create accounts")
	}
	userInfoAddr := ix.Accounts[1].Address
	storageAddr := ix.Accounts[2].Address
	owner := ix.Accounts[4].Address

	info := &account.UserInfo{}
	if blob, ok := get(userInfoAddr); ok {
		var err error
		if info, err = account.DecodeUserInfo(blob); err != nil {
			return err
		}
	}
	if want := account.StorageAccountAddress(l.Program, owner, info.AccountCounter); want != storageAddr {
		return fmt.Errorf("storage account %s does not match seed %d", storageAddr.Hex(), info.AccountCounter)
	}
	if _, exists := get(storageAddr); exists {
		return fmt.Errorf("account %s already exists", storageAddr.Hex())
	}

	label, size := args[0].(string), args[1].(uint64)
	var acct account.StorageAccount
	if name == instruction.MethodInitializeAccount2 {
		acct = &account.V2Account{
			Storage:            size,
			Owner1:             owner,
			AccountCounterSeed: info.AccountCounter,
			Identifier:         label,
		}
	} else {
		acct = &account.V1Account{
			InitCounter:        info.AccountCounter,
			Storage:            size,
			StorageAvailable:   size,
			Owner1:             owner,
			Owner2:             args[2].(common.Address),
			AccountCounterSeed: info.AccountCounter,
			Identifier:         label,
		}
	}
	blob, err := account.Encode(acct)
	if err != nil {
		return err
	}
	staged[storageAddr] = blob

	info.AccountCounter++
	info.AgreedToTos = true
	staged[userInfoAddr] = account.EncodeUserInfo(info)
	return nil
}

func grow(acct account.StorageAccount, delta uint64) {
	switch a := acct.(type) {
	case *account.V1Account:
		a.Storage += delta
		a.StorageAvailable += delta
	case *account.V2Account:
		a.Storage += delta
	}
}

func (l *Ledger) shrink(addr common.Address, acct account.StorageAccount, delta uint64) error {
	if acct.Immutable() {
		return errors.New("account is immutable")
	}
	switch a := acct.(type) {
	case *account.V1Account:
		if delta > a.StorageAvailable {
			return errors.New("not enough available storage")
		}
		a.Storage -= delta
		a.StorageAvailable -= delta
	case *account.V2Account:
		if delta > a.Storage || a.Storage-delta < l.usage[addr] {
			return errors.New("decrease below used storage")
		}
		a.Storage -= delta
	}
	return nil
}
