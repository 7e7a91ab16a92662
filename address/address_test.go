package address_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blocknative/walletprovider/address"
)

func TestIsAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "lower", in: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", want: true},
		{name: "upper", in: "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", want: true},
		{name: "checksummed", in: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", want: true},
		{name: "no prefix", in: "fB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", want: true},
		{name: "bad checksum", in: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", want: false},
		{name: "short", in: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1bea", want: false},
		{name: "garbage", in: "0xINVALID", want: false},
		{name: "empty", in: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, address.IsAddress(tt.in))
		})
	}
}

func TestIsChecksumAddress(t *testing.T) {
	t.Parallel()

	require.True(t, address.IsChecksumAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"))
	require.False(t, address.IsChecksumAddress("0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb"))
	require.True(t, address.IsChecksumAddress("dbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"))
}

func TestPadZeros(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0x0000000000000000000000000000000000000001", address.PadZeros("0x1"))
	require.Equal(t, "0x0000000000000000000000000000000000000abc", address.PadZeros("abc"))
	require.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", address.PadZeros("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"))
	require.True(t, address.Equal("0x01", "0x0000000000000000000000000000000000000001"))
}
