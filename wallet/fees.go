package wallet

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/blocknative/walletprovider/structs"
)

const weiDecimals = 18

var weiPerEther = uint256.NewInt(1_000_000_000_000_000_000)

// MaxFee returns the highest fee the transaction may pay, in ether. The per
// gas price is maxFeePerGas, falling back to gasPrice for legacy fee fields.
// Missing quantities produce "0".
func MaxFee(tx structs.TxParams) (string, error) {
	perGas := tx.MaxFeePerGas
	if perGas == "" {
		perGas = tx.GasPrice
	}
	if perGas == "" || tx.Gas == "" {
		return "0", nil
	}

	price, err := parseQuantity(perGas)
	if err != nil {
		return "", fmt.Errorf("fee per gas: %w", err)
	}
	gas, err := parseQuantity(tx.Gas)
	if err != nil {
		return "", fmt.Errorf("gas: %w", err)
	}

	total, overflow := new(uint256.Int).MulOverflow(price, gas)
	if overflow {
		return "", fmt.Errorf("max fee overflows 256 bits")
	}
	return FormatEther(total), nil
}

// FormatEther renders an amount of wei as a decimal ether string without
// trailing zeros.
func FormatEther(wei *uint256.Int) string {
	whole := new(uint256.Int).Div(wei, weiPerEther)
	frac := new(uint256.Int).Mod(wei, weiPerEther)

	if frac.IsZero() {
		return whole.ToBig().String()
	}

	fs := frac.ToBig().String()
	fs = strings.Repeat("0", weiDecimals-len(fs)) + fs
	fs = strings.TrimRight(fs, "0")
	return whole.ToBig().String() + "." + fs
}

func parseQuantity(s string) (*uint256.Int, error) {
	b, err := structs.ParseQuantity(s)
	if err != nil {
		return nil, err
	}

	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("quantity %q overflows 256 bits", s)
	}
	return v, nil
}
