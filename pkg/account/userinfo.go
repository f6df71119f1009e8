package account

import "fmt"

// UserInfo is the per-owner bookkeeping account. AccountCounter is the
// sequence index the next storage account will be created with.
type UserInfo struct {
	AccountCounter  uint32
	DelCounter      uint32
	AgreedToTos     bool
	LifetimeBadCsam bool
}

// DecodeUserInfo parses a UserInfo blob.
func DecodeUserInfo(blob []byte) (*UserInfo, error) {
	if len(blob) != userInfoBlobSize {
		return nil, fmt.Errorf("%w: user info blob is %d bytes, want %d", ErrMalformedAccount, len(blob), userInfoBlobSize)
	}
	var disc [DiscriminatorSize]byte
	copy(disc[:], blob)
	if disc != userInfoDiscriminator {
		return nil, fmt.Errorf("%w: user info discriminator %x", ErrMalformedAccount, disc)
	}
	r := newReader(blob[DiscriminatorSize:])
	u := &UserInfo{
		AccountCounter:  r.u32(),
		DelCounter:      r.u32(),
		AgreedToTos:     r.bool(),
		LifetimeBadCsam: r.bool(),
	}
	if err := r.finish(userInfoBlobSize, len(blob)); err != nil {
		return nil, fmt.Errorf("%w: user info: %v", ErrMalformedAccount, err)
	}
	return u, nil
}

// EncodeUserInfo serializes u. Used by fixtures and ledger fakes.
func EncodeUserInfo(u *UserInfo) []byte {
	var w writer
	w.raw(userInfoDiscriminator[:])
	w.u32(u.AccountCounter)
	w.u32(u.DelCounter)
	w.bool(u.AgreedToTos)
	w.bool(u.LifetimeBadCsam)
	return w.buf.Bytes()
}
