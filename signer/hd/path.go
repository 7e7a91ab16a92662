package hd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip32"
)

// DefaultBasePath is the BIP-44 path of the first Ethereum account.
const DefaultBasePath = "44'/60'/0'/0"

// ParsePath turns a derivation path such as "m/44'/60'/0'/0" into child
// indexes. Hardened segments are marked with ' or h.
func ParsePath(path string) ([]uint32, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "m")
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}

	parts := strings.Split(path, "/")
	indexes := make([]uint32, 0, len(parts))
	for _, p := range parts {
		hardened := strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h")
		p = strings.TrimRight(p, "'h")

		i, err := strconv.ParseUint(p, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("invalid path segment %q: %w", p, err)
		}

		idx := uint32(i)
		if hardened {
			idx += bip32.FirstHardenedChild
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}
