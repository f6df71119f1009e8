package blockchain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

var (
	// ErrSigningUnsupported is returned by a Signer that cannot produce a
	// signature for the requested payload.
	ErrSigningUnsupported = errors.New("signing unsupported")

	// HashPrefix32Bytes is the standard Ethereum personal-sign prefix for 32-byte
	// messages: "\x19Ethereum Signed Message:\n32".
	HashPrefix32Bytes = []byte("\x19Ethereum Signed Message:\n32")
)

// Signer is a caller-supplied signing capability.
type Signer interface {
	Address() common.Address
	// Sign signs a 32-byte digest and returns a 65-byte R||S||V signature.
	Sign(digest []byte) ([]byte, error)
}

// KeySigner signs with an in-memory secp256k1 key.
type KeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewKeySigner wraps key. It returns nil for a nil key.
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	addr := GetAddressFromPrivateKeyECDSA(key)
	if addr == nil {
		return nil
	}
	return &KeySigner{key: key, addr: *addr}
}

// Address returns the signer's address.
func (s *KeySigner) Address() common.Address { return s.addr }

// Sign signs digest. Only 32-byte digests are supported.
func (s *KeySigner) Sign(digest []byte) ([]byte, error) {
	if len(digest) != common.HashLength {
		return nil, fmt.Errorf("%w: digest must be %d bytes, got %d", ErrSigningUnsupported, common.HashLength, len(digest))
	}
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		zap.L().Error("Failed to sign digest", zap.Error(err))
		return nil, err
	}
	return sig, nil
}

// PersonalSign produces an Ethereum-compatible personal-sign (EIP-191 style)
// signature over message, hashing it as
// keccak256("\x19Ethereum Signed Message:\n32" || keccak256(message)).
func PersonalSign(signer Signer, message []byte) ([]byte, error) {
	return signer.Sign(PersonalHash(message))
}

// PersonalHash returns the digest PersonalSign signs.
func PersonalHash(message []byte) []byte {
	return crypto.Keccak256(HashPrefix32Bytes, crypto.Keccak256(message))
}

// RecoverPersonal returns the address that produced sig over message.
func RecoverPersonal(message, sig []byte) (common.Address, error) {
	pub, err := crypto.SigToPub(PersonalHash(message), sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// GetAddressFromPrivateKeyECDSA derives the address of the given key. It
// returns nil if the key is nil.
func GetAddressFromPrivateKeyECDSA(privateKeyECDSA *ecdsa.PrivateKey) *common.Address {
	if privateKeyECDSA == nil {
		return nil
	}
	publicKeyECDSA, ok := privateKeyECDSA.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil
	}
	addr := crypto.PubkeyToAddress(*publicKeyECDSA)
	return &addr
}

// ParsePrivateKeyECDSA parses a hex-encoded ECDSA private key and returns the
// corresponding address together with the key.
func ParsePrivateKeyECDSA(privateKey string) (common.Address, *ecdsa.PrivateKey, error) {
	privateKeyECDSA, err := crypto.HexToECDSA(privateKey)
	if err != nil {
		return common.Address{}, nil, err
	}
	addr := GetAddressFromPrivateKeyECDSA(privateKeyECDSA)
	if addr == nil {
		return common.Address{}, nil, errors.New("failed to get public key")
	}
	return *addr, privateKeyECDSA, nil
}
