package model

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var sizeUnits = map[string]int64{
	"":    1,
	"B":   1,
	"KB":  1_000,
	"MB":  1_000_000,
	"GB":  1_000_000_000,
	"TB":  1_000_000_000_000,
	"KIB": 1 << 10,
	"MIB": 1 << 20,
	"GIB": 1 << 30,
	"TIB": 1 << 40,
}

var binaryUnits = []struct {
	name string
	size uint64
}{
	{"TiB", 1 << 40},
	{"GiB", 1 << 30},
	{"MiB", 1 << 20},
	{"KiB", 1 << 10},
}

// ParseSize parses a human-readable byte size such as "1.5MB", "10 KiB" or
// "4096". KB/MB/GB/TB are decimal units and KiB/MiB/GiB/TiB binary ones.
// Fractional bytes are truncated.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return unicode.IsLetter(r) })
	num, unit := s, ""
	if i >= 0 {
		num, unit = strings.TrimSpace(s[:i]), strings.ToUpper(s[i:])
	}
	mult, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unknown size unit %q", s[i:])
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative size %q", s)
	}
	bytes := d.Mul(decimal.NewFromInt(mult)).Floor().BigInt()
	if !bytes.IsUint64() {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return bytes.Uint64(), nil
}

// FormatSize renders n with the largest binary unit not exceeding it, e.g.
// "1.5 MiB".
func FormatSize(n uint64) string {
	for _, u := range binaryUnits {
		if n >= u.size {
			v := decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0).
				Div(decimal.NewFromBigInt(new(big.Int).SetUint64(u.size), 0)).
				Round(2)
			return v.String() + " " + u.name
		}
	}
	return fmt.Sprintf("%d B", n)
}
