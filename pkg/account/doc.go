// Package account decodes storage accounts read from the ledger.
//
// Two layouts exist on-chain. V1 is the legacy record that tracks available
// bytes itself; V2 is the current record, which leaves usage accounting to
// the upload endpoint. Both decode into the StorageAccount interface:
//
//	acct, err := account.Decode(blob)
//	if errors.Is(err, account.ErrMalformedAccount) {
//		// unknown discriminator or wrong length
//	}
//	fmt.Println(acct.Version(), acct.Reserved(), acct.Used(), acct.Immutable())
//
// Every blob starts with an 8-byte discriminator,
// keccak256("account:<TypeName>")[:8], followed by a little-endian body whose
// length must match the layout exactly.
//
// # Addresses
//
// Storage-program accounts live at addresses derived from seeds, so a caller
// holding (owner, sequence index) can locate an account without a lookup:
//
//	addr := account.StorageAccountAddress(program, owner, 0)
package account
