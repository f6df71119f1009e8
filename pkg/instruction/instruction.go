package instruction

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shamank/shdw-sdk-go/pkg/account"
)

// ErrValidationRejected is returned when a mutation is refused before any
// instruction is produced.
var ErrValidationRejected = errors.New("validation rejected")

// Account size bounds accepted by the storage program.
const (
	MinAccountSize uint64 = 1 << 10
	MaxAccountSize uint64 = 1 << 40
)

// AccountMeta describes one account an instruction touches.
type AccountMeta struct {
	Address  common.Address
	Signer   bool
	Writable bool
}

// Instruction is an unsigned, version-resolved call into the storage program.
type Instruction struct {
	// Name is the program method, kept for logs. It is not part of the wire form.
	Name     string `rlp:"-"`
	Program  common.Address
	Accounts []AccountMeta
	Data     []byte
}

// Signers returns the addresses that must sign a transaction carrying ix.
func (ix *Instruction) Signers() []common.Address {
	var out []common.Address
	for _, m := range ix.Accounts {
		if m.Signer {
			out = append(out, m.Address)
		}
	}
	return out
}

// QuotaView answers whether an account can give up delta reserved bytes.
// quota.Usage satisfies it.
type QuotaView interface {
	CanReduce(delta uint64) bool
}

// CreateParams describes a new storage account.
type CreateParams struct {
	Owner common.Address
	// Owner2 is an optional second owner. Only the V1 layout stores it.
	Owner2 common.Address
	Label  string
	Size   uint64
	// Seed is the owner's current account counter (UserInfo.AccountCounter).
	Seed uint32
}

// Operations builds storage program instructions for one account layout.
type Operations interface {
	Version() account.Version
	Create(p CreateParams) (*Instruction, error)
	IncreaseStorage(acct account.StorageAccount, delta uint64) (*Instruction, error)
	DecreaseStorage(acct account.StorageAccount, delta uint64, view QuotaView) (*Instruction, error)
	MarkImmutable(acct account.StorageAccount) (*Instruction, error)
}

// Builder resolves the Operations implementation for a layout.
type Builder struct {
	Program common.Address
	// Uploader is the off-chain uploader key that co-signs account creation.
	// Zero means it is omitted.
	Uploader common.Address
}

// NewBuilder returns a Builder for the storage program at program.
func NewBuilder(program, uploader common.Address) *Builder {
	return &Builder{Program: program, Uploader: uploader}
}

// For returns the operations of version v.
func (b *Builder) For(v account.Version) (Operations, error) {
	switch v {
	case account.V1:
		return v1Ops{b}, nil
	case account.V2:
		return v2Ops{b}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported account version %s", ErrValidationRejected, v)
	}
}

// ForAccount returns the operations matching acct's layout.
func (b *Builder) ForAccount(acct account.StorageAccount) (Operations, error) {
	return b.For(acct.Version())
}

func validateCreate(p CreateParams) error {
	if p.Label == "" {
		return fmt.Errorf("%w: label is empty", ErrValidationRejected)
	}
	if len(p.Label) > account.MaxLabelSize {
		return fmt.Errorf("%w: label is %d bytes, max %d", ErrValidationRejected, len(p.Label), account.MaxLabelSize)
	}
	if p.Size < MinAccountSize || p.Size > MaxAccountSize {
		return fmt.Errorf("%w: size %d outside [%d, %d]", ErrValidationRejected, p.Size, MinAccountSize, MaxAccountSize)
	}
	if p.Owner == (common.Address{}) {
		return fmt.Errorf("%w: owner is required", ErrValidationRejected)
	}
	return nil
}

func validateIncrease(acct account.StorageAccount, delta uint64) error {
	if delta == 0 {
		return fmt.Errorf("%w: increase by zero bytes", ErrValidationRejected)
	}
	if acct.Reserved()+delta > MaxAccountSize || acct.Reserved()+delta < acct.Reserved() {
		return fmt.Errorf("%w: account would exceed %d bytes", ErrValidationRejected, MaxAccountSize)
	}
	return nil
}

func validateDecrease(acct account.StorageAccount, delta uint64, view QuotaView) error {
	switch {
	case acct.Immutable():
		return fmt.Errorf("%w: account %s is immutable", ErrValidationRejected, acct.Address().Hex())
	case delta == 0:
		return fmt.Errorf("%w: decrease by zero bytes", ErrValidationRejected)
	case view == nil || !view.CanReduce(delta):
		return fmt.Errorf("%w: cannot release %d bytes from account %s", ErrValidationRejected, delta, acct.Address().Hex())
	}
	return nil
}

func validateMarkImmutable(acct account.StorageAccount) error {
	if acct.Immutable() {
		return fmt.Errorf("%w: account %s is already immutable", ErrValidationRejected, acct.Address().Hex())
	}
	return nil
}

func (b *Builder) pack(method string, args ...interface{}) ([]byte, error) {
	data, err := StorageProgramABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

func (b *Builder) instruction(method string, metas []AccountMeta, args ...interface{}) (*Instruction, error) {
	data, err := b.pack(method, args...)
	if err != nil {
		return nil, err
	}
	return &Instruction{Name: method, Program: b.Program, Accounts: metas, Data: data}, nil
}

func writable(addr common.Address) AccountMeta { return AccountMeta{Address: addr, Writable: true} }
func readonly(addr common.Address) AccountMeta { return AccountMeta{Address: addr} }
func signer(addr common.Address) AccountMeta {
	return AccountMeta{Address: addr, Signer: true, Writable: true}
}
