// Package blockchain provides ledger access for the storage SDK.
//
// # Ledger transports
//
// Ledger is the small interface the rest of the SDK depends on. Two
// implementations are provided:
//
// RPCLedger:
//   - go-ethereum JSON-RPC client (http, ws or ipc endpoints)
//   - methods ledger_getLatestBlockhash, ledger_sendTransaction,
//     ledger_getTransactionStatus and ledger_getAccountInfo
//   - chain id through ethclient
//
// GRPCLedger:
//   - gRPC gateway exposing shdw.ledger.v1.Ledger
//   - messages are protobuf well-known types (BytesValue, Struct, Empty)
//   - every call carries an x-request-id header
//
// # Submitting transactions
//
// Submitter drives one transaction through
//
//	Built -> Signed -> Sent -> Confirmed | Failed | TimedOut
//
// The transaction is sent exactly once. After the send, its status is polled
// with a backoff policy until it is terminal or the poll budget runs out:
//
//	sub := blockchain.NewSubmitter(ledger, blockchain.SubmitterOptions{
//		MaxAttempts: 30,
//		Backoff:     blockchain.ExponentialBackoff(500*time.Millisecond, 5*time.Second),
//	})
//	receipt, err := sub.Submit(ctx, signer, ix)
//	switch {
//	case errors.Is(err, blockchain.ErrLedgerRejected):
//		// simulation error or failed status; not retried
//	case errors.Is(err, blockchain.ErrLedgerTimeout):
//		// may still land; the hash is on *SubmitError
//	}
//
// Resubmitting a timed-out transaction is left to the caller.
//
// # Signing
//
// Signer is a caller-supplied capability. KeySigner wraps a secp256k1 key and
// signs 32-byte digests only; anything else yields ErrSigningUnsupported.
// PersonalSign hashes a message the way Ethereum personal_sign does:
//
//	keccak256("\x19Ethereum Signed Message:\n32" || keccak256(message))
//
// # Wire format
//
// Transactions are RLP-encoded. The signing hash is keccak256(rlp(tx)) and
// signatures follow Transaction.RequiredSigners order, payer first.
package blockchain
