package account

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Seeds used by the storage program to derive its accounts.
const (
	SeedStorageAccount = "storage-account"
	SeedStorageConfig  = "storage-config"
	SeedUserInfo       = "user-info"
	SeedStakeAccount   = "stake-account"
	SeedUnstakeAccount = "unstake-account"
	SeedUnstakeInfo    = "unstake-info"
)

// DeriveAddress derives a program-owned address as the last 20 bytes of
// keccak256(program || seeds...). The result is deterministic, so accounts
// can be located without a prior lookup.
func DeriveAddress(program common.Address, seeds ...[]byte) common.Address {
	parts := make([][]byte, 0, len(seeds)+1)
	parts = append(parts, program.Bytes())
	parts = append(parts, seeds...)
	return common.BytesToAddress(crypto.Keccak256(parts...)[12:])
}

// StorageAccountAddress returns the address of owner's storage account with
// the given sequence index.
func StorageAccountAddress(program, owner common.Address, seed uint32) common.Address {
	return DeriveAddress(program, []byte(SeedStorageAccount), owner.Bytes(), seedBytes(seed))
}

// UserInfoAddress returns the address of owner's UserInfo account.
func UserInfoAddress(program, owner common.Address) common.Address {
	return DeriveAddress(program, []byte(SeedUserInfo), owner.Bytes())
}

// StorageConfigAddress returns the address of the program-wide config account.
func StorageConfigAddress(program common.Address) common.Address {
	return DeriveAddress(program, []byte(SeedStorageConfig))
}

// StakeAccountAddress returns the stake token account of a storage account.
func StakeAccountAddress(program, storageAccount common.Address) common.Address {
	return DeriveAddress(program, []byte(SeedStakeAccount), storageAccount.Bytes())
}

// UnstakeAccountAddress returns the unstake token account of a storage account.
func UnstakeAccountAddress(program, storageAccount common.Address) common.Address {
	return DeriveAddress(program, []byte(SeedUnstakeAccount), storageAccount.Bytes())
}

// UnstakeInfoAddress returns the unstake bookkeeping account of a storage account.
func UnstakeInfoAddress(program, storageAccount common.Address) common.Address {
	return DeriveAddress(program, []byte(SeedUnstakeInfo), storageAccount.Bytes())
}

func seedBytes(seed uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, seed)
}
