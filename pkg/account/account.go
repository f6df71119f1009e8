package account

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMalformedAccount is returned when an account blob carries an unknown
// discriminator or does not match the layout its discriminator announces.
var ErrMalformedAccount = errors.New("malformed account")

// Version identifies the on-chain layout of a storage account.
type Version uint8

const (
	// V1 is the legacy layout. It tracks available bytes on-chain.
	V1 Version = iota + 1
	// V2 is the current layout. Usage is verified by the upload endpoint.
	V2
)

// DefaultVersion is the layout assigned to newly created accounts.
const DefaultVersion = V2

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return fmt.Sprintf("version(%d)", uint8(v))
	}
}

// StorageAccount is the accessor surface shared by every layout. Call sites
// depend only on this interface; the concrete types are *V1Account and
// *V2Account.
type StorageAccount interface {
	Version() Version
	// Address is the account's own on-chain address (zero if unknown).
	Address() common.Address
	Owner() common.Address
	Label() string
	// Seed is the owner's account counter at creation time.
	Seed() uint32
	Reserved() uint64
	Used() uint64
	Immutable() bool
	ToBeDeleted() bool
	CreationEpoch() uint32

	sealed()
}

// V1Account is the legacy on-chain layout.
type V1Account struct {
	address common.Address

	IsStatic                  bool
	InitCounter               uint32
	DelCounter                uint32
	IsImmutable               bool
	DeleteFlag                bool
	DeleteRequestEpoch        uint32
	Storage                   uint64
	StorageAvailable          uint64
	Owner1                    common.Address
	Owner2                    common.Address
	ShdwPayer                 common.Address
	AccountCounterSeed        uint32
	TotalCostOfCurrentStorage uint64
	TotalFeesPaid             uint64
	CreationTime              uint32
	CreationEpochNum          uint32
	LastFeeEpoch              uint32
	Identifier                string
}

func (a *V1Account) sealed()                 {}
func (a *V1Account) Version() Version        { return V1 }
func (a *V1Account) Address() common.Address { return a.address }
func (a *V1Account) Owner() common.Address   { return a.Owner1 }
func (a *V1Account) Label() string           { return a.Identifier }
func (a *V1Account) Seed() uint32            { return a.AccountCounterSeed }
func (a *V1Account) Reserved() uint64        { return a.Storage }
func (a *V1Account) Immutable() bool         { return a.IsImmutable }
func (a *V1Account) ToBeDeleted() bool       { return a.DeleteFlag }
func (a *V1Account) CreationEpoch() uint32   { return a.CreationEpochNum }

// Used is derived from the on-chain available counter. A corrupted record
// with more available than reserved bytes reports zero usage.
func (a *V1Account) Used() uint64 {
	if a.StorageAvailable > a.Storage {
		return 0
	}
	return a.Storage - a.StorageAvailable
}

// V2Account is the current on-chain layout. It does not track usage; the
// value reported by Used is attached from the upload endpoint (see WithUsage).
type V2Account struct {
	address common.Address
	usage   uint64

	IsImmutable        bool
	DeleteFlag         bool
	DeleteRequestEpoch uint32
	Storage            uint64
	Owner1             common.Address
	AccountCounterSeed uint32
	CreationTime       uint32
	CreationEpochNum   uint32
	LastFeeEpoch       uint32
	Identifier         string
}

func (a *V2Account) sealed()                 {}
func (a *V2Account) Version() Version        { return V2 }
func (a *V2Account) Address() common.Address { return a.address }
func (a *V2Account) Owner() common.Address   { return a.Owner1 }
func (a *V2Account) Label() string           { return a.Identifier }
func (a *V2Account) Seed() uint32            { return a.AccountCounterSeed }
func (a *V2Account) Reserved() uint64        { return a.Storage }
func (a *V2Account) Used() uint64            { return a.usage }
func (a *V2Account) Immutable() bool         { return a.IsImmutable }
func (a *V2Account) ToBeDeleted() bool       { return a.DeleteFlag }
func (a *V2Account) CreationEpoch() uint32   { return a.CreationEpochNum }

// WithAddress returns a copy of acct bound to addr.
func WithAddress(acct StorageAccount, addr common.Address) StorageAccount {
	switch a := acct.(type) {
	case *V1Account:
		c := *a
		c.address = addr
		return &c
	case *V2Account:
		c := *a
		c.address = addr
		return &c
	}
	return acct
}

// WithUsage returns a copy of a V2 account carrying a server-verified usage
// figure. V1 accounts are returned unchanged since their usage is on-chain.
func WithUsage(acct StorageAccount, used uint64) StorageAccount {
	if a, ok := acct.(*V2Account); ok {
		c := *a
		c.usage = used
		return &c
	}
	return acct
}

// WithAddedUsage returns a copy of acct whose usage grew by n bytes. It is
// used for the advisory local view after uploads, before the next refresh.
func WithAddedUsage(acct StorageAccount, n uint64) StorageAccount {
	switch a := acct.(type) {
	case *V1Account:
		c := *a
		if n > c.StorageAvailable {
			c.StorageAvailable = 0
		} else {
			c.StorageAvailable -= n
		}
		return &c
	case *V2Account:
		c := *a
		c.usage += n
		return &c
	}
	return acct
}
