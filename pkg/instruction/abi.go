package instruction

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Storage program method names. The "2" suffix selects the V2 layout.
const (
	MethodInitializeAccount         = "initializeAccount"
	MethodInitializeAccount2        = "initializeAccount2"
	MethodIncreaseStorage           = "increaseStorage"
	MethodIncreaseStorage2          = "increaseStorage2"
	MethodIncreaseImmutableStorage  = "increaseImmutableStorage"
	MethodIncreaseImmutableStorage2 = "increaseImmutableStorage2"
	MethodDecreaseStorage           = "decreaseStorage"
	MethodDecreaseStorage2          = "decreaseStorage2"
	MethodMakeAccountImmutable      = "makeAccountImmutable"
	MethodMakeAccountImmutable2     = "makeAccountImmutable2"
)

const storageProgramABI = `[
	{"type":"function","name":"initializeAccount","inputs":[{"name":"identifier","type":"string"},{"name":"storage","type":"uint64"},{"name":"owner2","type":"address"}]},
	{"type":"function","name":"initializeAccount2","inputs":[{"name":"identifier","type":"string"},{"name":"storage","type":"uint64"}]},
	{"type":"function","name":"increaseStorage","inputs":[{"name":"additionalStorage","type":"uint64"}]},
	{"type":"function","name":"increaseStorage2","inputs":[{"name":"additionalStorage","type":"uint64"}]},
	{"type":"function","name":"increaseImmutableStorage","inputs":[{"name":"additionalStorage","type":"uint64"}]},
	{"type":"function","name":"increaseImmutableStorage2","inputs":[{"name":"additionalStorage","type":"uint64"}]},
	{"type":"function","name":"decreaseStorage","inputs":[{"name":"removeStorage","type":"uint64"}]},
	{"type":"function","name":"decreaseStorage2","inputs":[{"name":"removeStorage","type":"uint64"}]},
	{"type":"function","name":"makeAccountImmutable","inputs":[]},
	{"type":"function","name":"makeAccountImmutable2","inputs":[]}
]`

// StorageProgramABI is the parsed storage program interface used to encode
// instruction data.
var StorageProgramABI = mustParseABI(storageProgramABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
