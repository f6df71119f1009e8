// Package quota keeps the last confirmed (reserved, used) figures of storage
// accounts and answers pre-flight capacity questions against them. It never
// performs I/O; callers feed it with Observe after every confirmed read.
package quota

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shamank/shdw-sdk-go/pkg/account"
)

// Usage is a point-in-time view of one account's capacity.
type Usage struct {
	Reserved uint64
	Used     uint64
}

// Remaining returns the bytes still available in the account.
func (u Usage) Remaining() uint64 {
	if u.Used >= u.Reserved {
		return 0
	}
	return u.Reserved - u.Used
}

// Fits reports whether n more bytes can be stored.
func (u Usage) Fits(n uint64) bool {
	return n <= u.Remaining()
}

// CanReduce reports whether reserved can shrink by delta without dropping
// below the bytes already used.
func (u Usage) CanReduce(delta uint64) bool {
	if delta > u.Reserved {
		return false
	}
	return u.Used <= u.Reserved-delta
}

// FromAccount builds a Usage from a decoded account.
func FromAccount(acct account.StorageAccount) Usage {
	return Usage{Reserved: acct.Reserved(), Used: acct.Used()}
}

// Tracker is a concurrency-safe map of account address to Usage.
type Tracker struct {
	mu       sync.RWMutex
	accounts map[common.Address]Usage
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{accounts: make(map[common.Address]Usage)}
}

// Observe records the state of acct as its latest known usage.
func (t *Tracker) Observe(acct account.StorageAccount) {
	t.Set(acct.Address(), FromAccount(acct))
}

// Set records u for addr.
func (t *Tracker) Set(addr common.Address, u Usage) {
	t.mu.Lock()
	t.accounts[addr] = u
	t.mu.Unlock()
}

// Forget drops addr from the tracker.
func (t *Tracker) Forget(addr common.Address) {
	t.mu.Lock()
	delete(t.accounts, addr)
	t.mu.Unlock()
}

// Usage returns the known usage of addr.
func (t *Tracker) Usage(addr common.Address) (Usage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u, ok := t.accounts[addr]
	return u, ok
}

// CanReduce reports whether addr can release delta bytes. Unknown accounts
// report false.
func (t *Tracker) CanReduce(addr common.Address, delta uint64) bool {
	u, ok := t.Usage(addr)
	return ok && u.CanReduce(delta)
}

// Remaining returns the free bytes of addr.
func (t *Tracker) Remaining(addr common.Address) (uint64, bool) {
	u, ok := t.Usage(addr)
	if !ok {
		return 0, false
	}
	return u.Remaining(), true
}

// CanStore reports whether n more bytes fit into addr.
func (t *Tracker) CanStore(addr common.Address, n uint64) bool {
	u, ok := t.Usage(addr)
	return ok && u.Fits(n)
}
