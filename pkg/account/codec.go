package account

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DiscriminatorSize is the length of the type tag prefixing every account blob.
const DiscriminatorSize = 8

// MaxLabelSize is the longest identifier the storage program accepts.
const MaxLabelSize = 64

const (
	v1FixedSize      = 135
	v2FixedSize      = 62
	userInfoBlobSize = 18
	addressSize      = common.AddressLength
)

var (
	v1Discriminator       = Discriminator("StorageAccount")
	v2Discriminator       = Discriminator("StorageAccountV2")
	userInfoDiscriminator = Discriminator("UserInfo")
)

// Discriminator returns the 8-byte type tag of the named account type:
// keccak256("account:" + name)[:8].
func Discriminator(name string) [DiscriminatorSize]byte {
	var d [DiscriminatorSize]byte
	copy(d[:], crypto.Keccak256([]byte("account:"+name)))
	return d
}

// Decode parses a raw storage account blob. The layout is selected by the
// leading discriminator and the blob length must match it exactly.
func Decode(blob []byte) (StorageAccount, error) {
	if len(blob) < DiscriminatorSize {
		return nil, fmt.Errorf("%w: blob of %d bytes has no discriminator", ErrMalformedAccount, len(blob))
	}
	var disc [DiscriminatorSize]byte
	copy(disc[:], blob)
	switch disc {
	case v2Discriminator:
		return decodeV2(blob)
	case v1Discriminator:
		return decodeV1(blob)
	default:
		return nil, fmt.Errorf("%w: unknown discriminator %x", ErrMalformedAccount, disc)
	}
}

// DecodeAt parses blob and binds the result to its on-chain address.
func DecodeAt(addr common.Address, blob []byte) (StorageAccount, error) {
	acct, err := Decode(blob)
	if err != nil {
		return nil, err
	}
	return WithAddress(acct, addr), nil
}

func decodeV1(blob []byte) (*V1Account, error) {
	r := newReader(blob[DiscriminatorSize:])
	a := &V1Account{
		IsStatic:           r.bool(),
		InitCounter:        r.u32(),
		DelCounter:         r.u32(),
		IsImmutable:        r.bool(),
		DeleteFlag:         r.bool(),
		DeleteRequestEpoch: r.u32(),
		Storage:            r.u64(),
		StorageAvailable:   r.u64(),
		Owner1:             r.address(),
		Owner2:             r.address(),
		ShdwPayer:          r.address(),
		AccountCounterSeed: r.u32(),
	}
	a.TotalCostOfCurrentStorage = r.u64()
	a.TotalFeesPaid = r.u64()
	a.CreationTime = r.u32()
	a.CreationEpochNum = r.u32()
	a.LastFeeEpoch = r.u32()
	a.Identifier = r.string()
	if err := r.finish(v1FixedSize, len(blob)); err != nil {
		return nil, fmt.Errorf("%w: v1: %v", ErrMalformedAccount, err)
	}
	return a, nil
}

func decodeV2(blob []byte) (*V2Account, error) {
	r := newReader(blob[DiscriminatorSize:])
	a := &V2Account{
		IsImmutable:        r.bool(),
		DeleteFlag:         r.bool(),
		DeleteRequestEpoch: r.u32(),
		Storage:            r.u64(),
		Owner1:             r.address(),
		AccountCounterSeed: r.u32(),
		CreationTime:       r.u32(),
		CreationEpochNum:   r.u32(),
		LastFeeEpoch:       r.u32(),
		Identifier:         r.string(),
	}
	if err := r.finish(v2FixedSize, len(blob)); err != nil {
		return nil, fmt.Errorf("%w: v2: %v", ErrMalformedAccount, err)
	}
	return a, nil
}

// Encode serializes acct into its on-chain layout. Accounts are only ever
// mutated through instructions; this exists for fixtures and ledger fakes.
func Encode(acct StorageAccount) ([]byte, error) {
	var w writer
	switch a := acct.(type) {
	case *V1Account:
		w.raw(v1Discriminator[:])
		w.bool(a.IsStatic)
		w.u32(a.InitCounter)
		w.u32(a.DelCounter)
		w.bool(a.IsImmutable)
		w.bool(a.DeleteFlag)
		w.u32(a.DeleteRequestEpoch)
		w.u64(a.Storage)
		w.u64(a.StorageAvailable)
		w.raw(a.Owner1.Bytes())
		w.raw(a.Owner2.Bytes())
		w.raw(a.ShdwPayer.Bytes())
		w.u32(a.AccountCounterSeed)
		w.u64(a.TotalCostOfCurrentStorage)
		w.u64(a.TotalFeesPaid)
		w.u32(a.CreationTime)
		w.u32(a.CreationEpochNum)
		w.u32(a.LastFeeEpoch)
		w.string(a.Identifier)
	case *V2Account:
		w.raw(v2Discriminator[:])
		w.bool(a.IsImmutable)
		w.bool(a.DeleteFlag)
		w.u32(a.DeleteRequestEpoch)
		w.u64(a.Storage)
		w.raw(a.Owner1.Bytes())
		w.u32(a.AccountCounterSeed)
		w.u32(a.CreationTime)
		w.u32(a.CreationEpochNum)
		w.u32(a.LastFeeEpoch)
		w.string(a.Identifier)
	default:
		return nil, fmt.Errorf("encode: unsupported account type %T", acct)
	}
	return w.buf.Bytes(), nil
}

// reader walks a little-endian blob. The first failure sticks; later reads
// return zero values.
type reader struct {
	buf []byte
	off int
	err error
}

func newReader(b []byte) *reader { return &reader{buf: b} }

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = fmt.Errorf("need %d bytes at offset %d, have %d", n, r.off, len(r.buf)-r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) bool() bool {
	b := r.take(1)
	if b == nil {
		return false
	}
	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	}
	r.err = fmt.Errorf("invalid bool byte %#x at offset %d", b[0], r.off-1)
	return false
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) address() common.Address {
	return common.BytesToAddress(r.take(addressSize))
}

func (r *reader) string() string {
	n := r.u32()
	if r.err == nil && n > MaxLabelSize {
		r.err = fmt.Errorf("identifier length %d exceeds %d", n, MaxLabelSize)
		return ""
	}
	return string(r.take(int(n)))
}

// finish checks that the whole blob was consumed and matches fixed+identifier.
func (r *reader) finish(fixed, total int) error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return fmt.Errorf("%d trailing bytes", len(r.buf)-r.off)
	}
	// total includes the discriminator; fixed does too.
	if total < fixed {
		return fmt.Errorf("blob of %d bytes shorter than fixed layout %d", total, fixed)
	}
	return nil
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) raw(b []byte) { w.buf.Write(b) }

func (w *writer) bool(v bool) {
	if v {
		w.buf.WriteByte(1)
		return
	}
	w.buf.WriteByte(0)
}

func (w *writer) u32(v uint32) { w.buf.Write(binary.LittleEndian.AppendUint32(nil, v)) }

func (w *writer) u64(v uint64) { w.buf.Write(binary.LittleEndian.AppendUint64(nil, v)) }

func (w *writer) string(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}
