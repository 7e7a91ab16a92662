// Package address validates and normalizes hex encoded Ethereum addresses.
package address

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const hexLength = 2 * common.AddressLength

var (
	basicAddress    = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{40}$`)
	sameCaseAddress = regexp.MustCompile(`^(0x)?([0-9a-f]{40}|[0-9A-F]{40})$`)
)

// IsAddress reports whether s is a 20 byte hex address. Mixed case input must
// carry a valid EIP-55 checksum.
func IsAddress(s string) bool {
	if !basicAddress.MatchString(s) {
		return false
	}
	if sameCaseAddress.MatchString(s) {
		return true
	}
	return IsChecksumAddress(s)
}

// IsChecksumAddress reports whether s is spelled with its EIP-55 checksum.
func IsChecksumAddress(s string) bool {
	if !basicAddress.MatchString(s) {
		return false
	}
	return common.HexToAddress(s).Hex() == with0xPrefix(s)
}

// PadZeros left pads s with zeros to the canonical 40 hex digit length.
func PadZeros(s string) string {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) < hexLength {
		s = strings.Repeat("0", hexLength-len(s)) + s
	}
	return "0x" + s
}

// Equal compares two addresses ignoring case and prefix.
func Equal(a, b string) bool {
	return strings.EqualFold(PadZeros(a), PadZeros(b))
}

func with0xPrefix(s string) string {
	if strings.HasPrefix(s, "0x") {
		return s
	}
	return "0x" + s
}
