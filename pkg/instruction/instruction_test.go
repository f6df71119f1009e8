package instruction

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shamank/shdw-sdk-go/pkg/account"
	"github.com/shamank/shdw-sdk-go/pkg/quota"
)

var (
	program = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	owner   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

func v2Account(reserved uint64, immutable bool) account.StorageAccount {
	addr := account.StorageAccountAddress(program, owner, 0)
	return account.WithAddress(&account.V2Account{
		Storage:     reserved,
		Owner1:      owner,
		IsImmutable: immutable,
		Identifier:  "docs",
	}, addr)
}

func v1Account(reserved, used uint64, immutable bool) account.StorageAccount {
	addr := account.StorageAccountAddress(program, owner, 1)
	return account.WithAddress(&account.V1Account{
		Storage:          reserved,
		StorageAvailable: reserved - used,
		Owner1:           owner,
		IsImmutable:      immutable,
		Identifier:       "legacy",
	}, addr)
}

func ops(t *testing.T, v account.Version) Operations {
	t.Helper()
	o, err := NewBuilder(program, common.Address{}).For(v)
	if err != nil {
		t.Fatalf("For(%s): %v", v, err)
	}
	return o
}

func selector(t *testing.T, ix *Instruction) string {
	t.Helper()
	m, err := StorageProgramABI.MethodById(ix.Data[:4])
	if err != nil {
		t.Fatalf("unknown selector %x: %v", ix.Data[:4], err)
	}
	return m.Name
}

func hasMeta(ix *Instruction, addr common.Address) bool {
	for _, m := range ix.Accounts {
		if m.Address == addr {
			return true
		}
	}
	return false
}

func TestBuilderForUnknownVersion(t *testing.T) {
	_, err := NewBuilder(program, common.Address{}).For(account.Version(9))
	if !errors.Is(err, ErrValidationRejected) {
		t.Fatalf("expected ErrValidationRejected, got %v", err)
	}
}

func TestCreate(t *testing.T) {
	tests := []struct {
		version account.Version
		method  string
	}{
		{account.V1, MethodInitializeAccount},
		{account.V2, MethodInitializeAccount2},
	}
	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			ix, err := ops(t, tt.version).Create(CreateParams{Owner: owner, Label: "docs", Size: 1 << 20, Seed: 3})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if got := selector(t, ix); got != tt.method {
				t.Fatalf("method = %s, want %s", got, tt.method)
			}
			if !hasMeta(ix, account.StorageAccountAddress(program, owner, 3)) {
				t.Fatal("create must address the account derived from the seed")
			}
			signers := ix.Signers()
			if len(signers) != 1 || signers[0] != owner {
				t.Fatalf("unexpected signers %v", signers)
			}
		})
	}
}

func TestCreateArguments(t *testing.T) {
	ix, err := ops(t, account.V2).Create(CreateParams{Owner: owner, Label: "photos", Size: 4096})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	args, err := StorageProgramABI.Methods[MethodInitializeAccount2].Inputs.Unpack(ix.Data[4:])
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if args[0].(string) != "photos" || args[1].(uint64) != 4096 {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		p    CreateParams
	}{
		{"empty label", CreateParams{Owner: owner, Size: 1 << 20}},
		{"label too long", CreateParams{Owner: owner, Label: strings.Repeat("x", 65), Size: 1 << 20}},
		{"too small", CreateParams{Owner: owner, Label: "a", Size: 1023}},
		{"too large", CreateParams{Owner: owner, Label: "a", Size: MaxAccountSize + 1}},
		{"no owner", CreateParams{Label: "a", Size: 1 << 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range []account.Version{account.V1, account.V2} {
				ix, err := ops(t, v).Create(tt.p)
				if !errors.Is(err, ErrValidationRejected) || ix != nil {
					t.Fatalf("%s: expected rejection, got %v / %v", v, ix, err)
				}
			}
		})
	}
}

func TestIncreaseStorageSelectsImmutableVariant(t *testing.T) {
	tests := []struct {
		name string
		acct account.StorageAccount
		want string
	}{
		{"v1 mutable", v1Account(1<<20, 0, false), MethodIncreaseStorage},
		{"v1 immutable", v1Account(1<<20, 0, true), MethodIncreaseImmutableStorage},
		{"v2 mutable", v2Account(1<<20, false), MethodIncreaseStorage2},
		{"v2 immutable", v2Account(1<<20, true), MethodIncreaseImmutableStorage2},
	}
	b := NewBuilder(program, common.Address{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := b.ForAccount(tt.acct)
			if err != nil {
				t.Fatalf("ForAccount: %v", err)
			}
			ix, err := o.IncreaseStorage(tt.acct, 1<<20)
			if err != nil {
				t.Fatalf("IncreaseStorage: %v", err)
			}
			if got := selector(t, ix); got != tt.want {
				t.Fatalf("method = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecreaseStorage(t *testing.T) {
	acct := v2Account(100, false)
	view := quota.Usage{Reserved: 100, Used: 90}

	if _, err := ops(t, account.V2).DecreaseStorage(acct, 20, view); !errors.Is(err, ErrValidationRejected) {
		t.Fatalf("reducing below usage must be rejected, got %v", err)
	}
	if _, err := ops(t, account.V2).DecreaseStorage(acct, 0, view); !errors.Is(err, ErrValidationRejected) {
		t.Fatalf("zero delta must be rejected, got %v", err)
	}
	if _, err := ops(t, account.V2).DecreaseStorage(acct, 10, nil); !errors.Is(err, ErrValidationRejected) {
		t.Fatalf("missing quota view must be rejected, got %v", err)
	}

	ix, err := ops(t, account.V2).DecreaseStorage(acct, 10, view)
	if err != nil {
		t.Fatalf("DecreaseStorage: %v", err)
	}
	if selector(t, ix) != MethodDecreaseStorage2 {
		t.Fatalf("unexpected method %s", ix.Name)
	}
	if !hasMeta(ix, account.UnstakeAccountAddress(program, acct.Address())) {
		t.Fatal("decrease must route released stake through the unstake account")
	}
}

func TestDecreaseImmutableRejected(t *testing.T) {
	for _, acct := range []account.StorageAccount{v1Account(1<<20, 0, true), v2Account(1<<20, true)} {
		o, _ := NewBuilder(program, common.Address{}).ForAccount(acct)
		ix, err := o.DecreaseStorage(acct, 1024, quota.FromAccount(acct))
		if !errors.Is(err, ErrValidationRejected) || ix != nil {
			t.Fatalf("%s: immutable decrease must produce no instruction, got %v / %v", acct.Version(), ix, err)
		}
	}
}

func TestMarkImmutableOnlySetsFlag(t *testing.T) {
	acct := v2Account(1<<20, false)
	ix, err := ops(t, account.V2).MarkImmutable(acct)
	if err != nil {
		t.Fatalf("MarkImmutable: %v", err)
	}
	if len(ix.Data) != 4 {
		t.Fatalf("mark immutable carries arguments: %x", ix.Data)
	}
	if !bytes.Equal(ix.Data, StorageProgramABI.Methods[MethodMakeAccountImmutable2].ID) {
		t.Fatalf("unexpected selector %x", ix.Data)
	}
	for _, unstake := range []common.Address{
		account.UnstakeAccountAddress(program, acct.Address()),
		account.UnstakeInfoAddress(program, acct.Address()),
	} {
		if hasMeta(ix, unstake) {
			t.Fatalf("mark immutable references unstake account %s", unstake.Hex())
		}
	}

	if _, err := ops(t, account.V2).MarkImmutable(v2Account(1<<20, true)); !errors.Is(err, ErrValidationRejected) {
		t.Fatalf("already immutable must be rejected, got %v", err)
	}
}

func TestUploaderCoSignsCreate(t *testing.T) {
	uploader := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	o, _ := NewBuilder(program, uploader).For(account.V2)
	ix, err := o.Create(CreateParams{Owner: owner, Label: "docs", Size: 1 << 20})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(ix.Signers()) != 2 {
		t.Fatalf("expected owner and uploader signers, got %v", ix.Signers())
	}
}
