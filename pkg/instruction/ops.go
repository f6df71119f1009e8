package instruction

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/shamank/shdw-sdk-go/pkg/account"
)

type v1Ops struct{ b *Builder }

func (o v1Ops) Version() account.Version { return account.V1 }

func (o v1Ops) Create(p CreateParams) (*Instruction, error) {
	if err := validateCreate(p); err != nil {
		return nil, err
	}
	return o.b.instruction(MethodInitializeAccount, o.b.createMetas(p), p.Label, p.Size, p.Owner2)
}

func (o v1Ops) IncreaseStorage(acct account.StorageAccount, delta uint64) (*Instruction, error) {
	if err := validateIncrease(acct, delta); err != nil {
		return nil, err
	}
	method := MethodIncreaseStorage
	if acct.Immutable() {
		method = MethodIncreaseImmutableStorage
	}
	return o.b.instruction(method, o.b.increaseMetas(acct), delta)
}

func (o v1Ops) DecreaseStorage(acct account.StorageAccount, delta uint64, view QuotaView) (*Instruction, error) {
	if err := validateDecrease(acct, delta, view); err != nil {
		return nil, err
	}
	return o.b.instruction(MethodDecreaseStorage, o.b.decreaseMetas(acct), delta)
}

func (o v1Ops) MarkImmutable(acct account.StorageAccount) (*Instruction, error) {
	if err := validateMarkImmutable(acct); err != nil {
		return nil, err
	}
	return o.b.instruction(MethodMakeAccountImmutable, o.b.immutableMetas(acct))
}

type v2Ops struct{ b *Builder }

func (o v2Ops) Version() account.Version { return account.V2 }

// Create ignores p.Owner2; the V2 layout has a single owner.
func (o v2Ops) Create(p CreateParams) (*Instruction, error) {
	if err := validateCreate(p); err != nil {
		return nil, err
	}
	p.Owner2 = common.Address{}
	return o.b.instruction(MethodInitializeAccount2, o.b.createMetas(p), p.Label, p.Size)
}

func (o v2Ops) IncreaseStorage(acct account.StorageAccount, delta uint64) (*Instruction, error) {
	if err := validateIncrease(acct, delta); err != nil {
		return nil, err
	}
	method := MethodIncreaseStorage2
	if acct.Immutable() {
		method = MethodIncreaseImmutableStorage2
	}
	return o.b.instruction(method, o.b.increaseMetas(acct), delta)
}

func (o v2Ops) DecreaseStorage(acct account.StorageAccount, delta uint64, view QuotaView) (*Instruction, error) {
	if err := validateDecrease(acct, delta, view); err != nil {
		return nil, err
	}
	return o.b.instruction(MethodDecreaseStorage2, o.b.decreaseMetas(acct), delta)
}

func (o v2Ops) MarkImmutable(acct account.StorageAccount) (*Instruction, error) {
	if err := validateMarkImmutable(acct); err != nil {
		return nil, err
	}
	return o.b.instruction(MethodMakeAccountImmutable2, o.b.immutableMetas(acct))
}

// Account lists. The storage config account always leads; the owner signs.

func (b *Builder) createMetas(p CreateParams) []AccountMeta {
	storageAccount := account.StorageAccountAddress(b.Program, p.Owner, p.Seed)
	metas := []AccountMeta{
		writable(account.StorageConfigAddress(b.Program)),
		writable(account.UserInfoAddress(b.Program, p.Owner)),
		writable(storageAccount),
		writable(account.StakeAccountAddress(b.Program, storageAccount)),
		signer(p.Owner),
	}
	if p.Owner2 != (common.Address{}) {
		metas = append(metas, readonly(p.Owner2))
	}
	if b.Uploader != (common.Address{}) {
		metas = append(metas, AccountMeta{Address: b.Uploader, Signer: true})
	}
	return metas
}

func (b *Builder) increaseMetas(acct account.StorageAccount) []AccountMeta {
	return []AccountMeta{
		writable(account.StorageConfigAddress(b.Program)),
		writable(acct.Address()),
		signer(acct.Owner()),
		writable(account.StakeAccountAddress(b.Program, acct.Address())),
	}
}

func (b *Builder) decreaseMetas(acct account.StorageAccount) []AccountMeta {
	return []AccountMeta{
		writable(account.StorageConfigAddress(b.Program)),
		writable(acct.Address()),
		writable(account.UnstakeInfoAddress(b.Program, acct.Address())),
		writable(account.UnstakeAccountAddress(b.Program, acct.Address())),
		signer(acct.Owner()),
		writable(account.StakeAccountAddress(b.Program, acct.Address())),
	}
}

func (b *Builder) immutableMetas(acct account.StorageAccount) []AccountMeta {
	return []AccountMeta{
		writable(account.StorageConfigAddress(b.Program)),
		writable(acct.Address()),
		writable(account.StakeAccountAddress(b.Program, acct.Address())),
		signer(acct.Owner()),
	}
}
