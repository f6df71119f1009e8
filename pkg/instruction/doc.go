// Package instruction builds storage program instructions.
//
// Each account layout has its own instruction set. Builder.For (or
// ForAccount) resolves the Operations for a layout so call sites never
// branch on the version themselves:
//
//	ops, err := instruction.NewBuilder(program, uploader).ForAccount(acct)
//	if err != nil {
//		return err
//	}
//	ix, err := ops.IncreaseStorage(acct, 1<<20)
//
// Instruction data is ABI calldata against StorageProgramABI.
//
// # Validation
//
// Every operation checks its preconditions before producing an instruction and
// returns ErrValidationRejected (wrapped) when they do not hold:
//
//   - Create: non-empty label of at most 64 bytes; size in [1 KiB, 1 TiB].
//   - IncreaseStorage: non-zero delta. Immutable accounts get the
//     immutable-increase method of their layout.
//   - DecreaseStorage: mutable account, non-zero delta, and a QuotaView that
//     can absorb the reduction.
//   - MarkImmutable: the account is not immutable yet. The instruction carries
//     no size argument and never touches the unstake accounts.
package instruction
