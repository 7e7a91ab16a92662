package wallet_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/blocknative/walletprovider/structs"
	"github.com/blocknative/walletprovider/wallet"
)

func TestMaxFee(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tx   structs.TxParams
		want string
	}{
		{"fee market", structs.TxParams{MaxFeePerGas: "0x3b9aca00", GasPrice: "0x1", Gas: "0x5208"}, "0.000021"},
		{"legacy price", structs.TxParams{GasPrice: "0x3b9aca00", Gas: "0x5208"}, "0.000021"},
		{"decimal quantities", structs.TxParams{GasPrice: "1000000000", Gas: "21000"}, "0.000021"},
		{"whole ether", structs.TxParams{GasPrice: "0xde0b6b3a7640000", Gas: "0x2"}, "2"},
		{"missing gas", structs.TxParams{GasPrice: "0x1"}, "0"},
		{"missing price", structs.TxParams{Gas: "0x5208"}, "0"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := wallet.MaxFee(tc.tx)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestMaxFeeInvalidQuantity(t *testing.T) {
	t.Parallel()

	_, err := wallet.MaxFee(structs.TxParams{GasPrice: "0xzz", Gas: "0x1"})
	require.Error(t, err)
}

func TestFormatEther(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0", wallet.FormatEther(uint256.NewInt(0)))
	require.Equal(t, "0.000000000000000001", wallet.FormatEther(uint256.NewInt(1)))
	require.Equal(t, "1.5", wallet.FormatEther(uint256.NewInt(1_500_000_000_000_000_000)))
}
