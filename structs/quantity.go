package structs

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseQuantity parses a 0x-prefixed hex or a decimal quantity. Unlike
// hexutil it tolerates leading zeros such as "0x02".
func ParseQuantity(s string) (*big.Int, error) {
	base, digits := 10, s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base, digits = 16, s[2:]
	}

	b, ok := new(big.Int).SetString(digits, base)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	return b, nil
}
