package wallet_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/blocknative/walletprovider/provider/mocks"
	"github.com/blocknative/walletprovider/structs"
	"github.com/blocknative/walletprovider/wallet"
)

const (
	sender    = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	recipient = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func result(t *testing.T, v any) structs.Response {
	t.Helper()
	resp, err := structs.NewResult(1, v)
	require.NoError(t, err)
	return resp
}

func TestCompleterFillOrder(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	d := mocks.NewMockDispatcher(ctrl)

	var methods []string
	d.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req structs.Request) (structs.Response, error) {
			methods = append(methods, req.Method)
			switch req.Method {
			case "eth_gasPrice":
				require.Empty(t, req.Params)
				return result(t, "0x3b9aca00"), nil
			case "eth_getTransactionCount":
				require.Equal(t, []any{sender, "pending"}, req.Params)
				return result(t, "0x7"), nil
			case "eth_estimateGas":
				require.Len(t, req.Params, 1)
				args, ok := req.Params[0].(structs.TxParams)
				require.True(t, ok)
				require.Equal(t, "0x7", args.Nonce)
				return result(t, "0x5208"), nil
			}
			return structs.Response{}, errors.New("unexpected method " + req.Method)
		}).Times(3)

	c := wallet.NewCompleter(logger, d)
	tx, err := c.Complete(context.Background(), structs.TxParams{From: sender, To: recipient})
	require.NoError(t, err)

	require.Equal(t, []string{"eth_gasPrice", "eth_getTransactionCount", "eth_estimateGas"}, methods)
	require.Equal(t, structs.TxTypeDynamicFee, tx.Type)
	require.Equal(t, "0x3b9aca00", tx.GasPrice)
	require.Equal(t, "0x7", tx.Nonce)
	require.Equal(t, "0x5208", tx.Gas)
	require.Equal(t, "0x5208", tx.GasLimit)
	require.Equal(t, recipient, tx.To)
}

func TestCompleterGasLimitFromGas(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	d := mocks.NewMockDispatcher(ctrl)

	d.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req structs.Request) (structs.Response, error) {
			require.NotEqual(t, "eth_estimateGas", req.Method)
			if req.Method == "eth_gasPrice" {
				return result(t, "0x1"), nil
			}
			return result(t, "0x0"), nil
		}).Times(2)

	c := wallet.NewCompleter(logger, d)
	tx, err := c.Complete(context.Background(), structs.TxParams{From: sender, Gas: "0x5208"})
	require.NoError(t, err)
	require.Equal(t, "0x5208", tx.GasLimit)
	require.Equal(t, "0x5208", tx.Gas)
}

func TestCompleterKeepsSuppliedFields(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	d := mocks.NewMockDispatcher(ctrl)

	partial := structs.TxParams{
		From:     sender,
		Type:     "0x0",
		Gas:      "0x5208",
		GasLimit: "0x6000",
		GasPrice: "0x2",
		Nonce:    "0x3",
	}

	c := wallet.NewCompleter(logger, d)
	tx, err := c.Complete(context.Background(), partial)
	require.NoError(t, err)
	require.Equal(t, partial, tx)
}

func TestCompleterAbortsOnFirstFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	d := mocks.NewMockDispatcher(ctrl)

	failure := errors.New("node unavailable")
	d.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(structs.Response{}, failure).Times(1)

	c := wallet.NewCompleter(logger, d)
	_, err := c.Complete(context.Background(), structs.TxParams{From: sender})
	require.ErrorIs(t, err, failure)
}

func TestCompleterNodeErrorResponse(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	d := mocks.NewMockDispatcher(ctrl)

	rerr := &structs.RPCError{Code: -32000, Message: "header not found"}
	d.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(structs.NewErrorResponse(1, rerr), nil).Times(1)

	c := wallet.NewCompleter(logger, d)
	_, err := c.Complete(context.Background(), structs.TxParams{From: sender, GasPrice: "0x1"})
	require.ErrorIs(t, err, rerr)
}

func TestCompleterEstimateWithoutGasPriceForFeeMarket(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	d := mocks.NewMockDispatcher(ctrl)

	d.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req structs.Request) (structs.Response, error) {
			switch req.Method {
			case "eth_gasPrice":
				return result(t, "0x10"), nil
			case "eth_estimateGas":
				args := req.Params[0].(structs.TxParams)
				require.Empty(t, args.GasPrice)
				require.Equal(t, "0x20", args.MaxFeePerGas)
				return result(t, "0x5208"), nil
			}
			return result(t, "0x1"), nil
		}).Times(3)

	c := wallet.NewCompleter(logger, d)
	tx, err := c.Complete(context.Background(), structs.TxParams{From: sender, MaxFeePerGas: "0x20"})
	require.NoError(t, err)
	require.Equal(t, "0x10", tx.GasPrice)
}

// nodeTxArgs decodes a transaction object with the quantity types geth uses
// for eth_estimateGas arguments.
type nodeTxArgs struct {
	From                 string          `json:"from"`
	To                   string          `json:"to"`
	Gas                  *hexutil.Uint64 `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas"`
	Value                *hexutil.Big    `json:"value"`
	Nonce                *hexutil.Uint64 `json:"nonce"`
	Data                 *hexutil.Bytes  `json:"data"`
	ChainID              *hexutil.Big    `json:"chainId"`
}

func TestCompleterEstimateArgsDecodeOnNode(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	d := mocks.NewMockDispatcher(ctrl)

	d.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req structs.Request) (structs.Response, error) {
			switch req.Method {
			case "eth_gasPrice":
				return result(t, "0x3b9aca00"), nil
			case "eth_getTransactionCount":
				return result(t, "0x7"), nil
			case "eth_estimateGas":
				b, err := json.Marshal(req.Params[0])
				require.NoError(t, err)

				var args nodeTxArgs
				require.NoError(t, json.Unmarshal(b, &args), string(b))
				require.NotNil(t, args.ChainID)
				require.Equal(t, int64(1), args.ChainID.ToInt().Int64())
				require.NotNil(t, args.Nonce)
				require.Equal(t, uint64(7), uint64(*args.Nonce))
				require.Nil(t, args.Gas)
				return result(t, "0x5208"), nil
			}
			return structs.Response{}, errors.New("unexpected method " + req.Method)
		}).Times(3)

	var partial structs.TxParams
	require.NoError(t, json.Unmarshal([]byte(`{"from":"`+sender+`","to":"`+recipient+`","value":"0x1","chainId":"0x1"}`), &partial))

	c := wallet.NewCompleter(logger, d)
	tx, err := c.Complete(context.Background(), partial)
	require.NoError(t, err)
	require.Equal(t, "0x5208", tx.Gas)
	require.Equal(t, structs.ChainID(1), tx.ChainID)
}
