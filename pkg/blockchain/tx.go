package blockchain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/shamank/shdw-sdk-go/pkg/instruction"
)

// Transaction is an unsigned batch of instructions paid for by Payer.
type Transaction struct {
	ChainID         *big.Int
	Payer           common.Address
	RecentBlockhash common.Hash
	Instructions    []*instruction.Instruction
}

// SigningHash is keccak256(rlp(tx)).
func (tx *Transaction) SigningHash() (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode transaction: %w", err)
	}
	return crypto.Keccak256Hash(enc), nil
}

// RequiredSigners returns the payer followed by every other distinct signer
// the instructions name.
func (tx *Transaction) RequiredSigners() []common.Address {
	seen := map[common.Address]bool{tx.Payer: true}
	out := []common.Address{tx.Payer}
	for _, ix := range tx.Instructions {
		for _, addr := range ix.Signers() {
			if !seen[addr] {
				seen[addr] = true
				out = append(out, addr)
			}
		}
	}
	return out
}

// SignedTransaction carries signatures in RequiredSigners order.
type SignedTransaction struct {
	Tx         Transaction
	Signatures [][]byte
}

// Encode returns the wire form sent to the ledger.
func (stx *SignedTransaction) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(stx)
}

// Hash is keccak256 of the wire form. Ledgers report the same value.
func (stx *SignedTransaction) Hash() (common.Hash, error) {
	raw, err := stx.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(raw), nil
}

// DecodeSignedTransaction parses the wire form. Used by ledger fakes.
func DecodeSignedTransaction(raw []byte) (*SignedTransaction, error) {
	stx := new(SignedTransaction)
	if err := rlp.DecodeBytes(raw, stx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return stx, nil
}

// SignTransaction signs tx with signers, which must cover RequiredSigners.
func SignTransaction(tx *Transaction, signers ...Signer) (*SignedTransaction, error) {
	digest, err := tx.SigningHash()
	if err != nil {
		return nil, err
	}
	byAddr := make(map[common.Address]Signer, len(signers))
	for _, s := range signers {
		byAddr[s.Address()] = s
	}
	required := tx.RequiredSigners()
	sigs := make([][]byte, 0, len(required))
	for _, addr := range required {
		s, ok := byAddr[addr]
		if !ok {
			return nil, fmt.Errorf("missing signer %s", addr.Hex())
		}
		sig, err := s.Sign(digest.Bytes())
		if err != nil {
			return nil, fmt.Errorf("sign as %s: %w", addr.Hex(), err)
		}
		sigs = append(sigs, sig)
	}
	return &SignedTransaction{Tx: *tx, Signatures: sigs}, nil
}
