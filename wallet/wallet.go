package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lthibault/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blocknative/walletprovider/address"
	"github.com/blocknative/walletprovider/provider"
	"github.com/blocknative/walletprovider/structs"
)

// Wallet answers account and signing methods with the help of a Signer and
// passes every other request down the chain.
type Wallet struct {
	d       provider.Dispatcher
	s       Signer
	c       *Completer
	obs     Observer
	j       Journal
	enabled *EnabledMethods
	l       log.Logger
	m       WalletMetrics
}

// NewWallet builds the wallet middleware. obs, j and enabled may be nil.
func NewWallet(l log.Logger, d provider.Dispatcher, s Signer, obs Observer, j Journal, enabled *EnabledMethods) *Wallet {
	w := &Wallet{
		d:       d,
		s:       s,
		c:       NewCompleter(l, d),
		obs:     obs,
		j:       j,
		enabled: enabled,
		l:       l.WithField("module", "wallet"),
	}
	w.initMetrics()
	return w
}

func (w *Wallet) HandleRequest(ctx context.Context, req structs.Request) provider.Outcome {
	if !IsWalletMethod(req.Method) {
		return provider.Next()
	}

	if w.enabled != nil && !w.enabled.GetBool(req.Method) {
		return provider.EndWithError(ErrMethodNotSupported)
	}

	switch req.Method {
	case MethodCoinbase:
		accounts, err := w.accounts(ctx)
		if err != nil {
			return provider.EndWithError(err)
		}
		if len(accounts) == 0 {
			return provider.EndWithError(ErrAddressNotFound)
		}
		return provider.End(accounts[0])

	case MethodAccounts:
		accounts, err := w.accounts(ctx)
		if err != nil {
			return provider.EndWithError(err)
		}
		return provider.End(accounts)

	case MethodSendTransaction:
		return w.sendTransaction(ctx, req)

	case MethodSignTransaction:
		return w.signTransaction(ctx, req)

	case MethodSign:
		// eth_sign takes [address, data]
		addr, _ := req.StringParam(0)
		data, _ := req.StringParam(1)
		return w.signMessage(ctx, req.Method, data, addr)

	case MethodPersonalSign:
		// personal_sign takes [data, address]
		data, _ := req.StringParam(0)
		addr, _ := req.StringParam(1)
		return w.signMessage(ctx, req.Method, data, addr)

	case MethodSignTypedData, MethodSignTypedDataV4:
		return w.signTypedData(ctx, req)
	}

	return provider.Next()
}

func (w *Wallet) accounts(ctx context.Context) ([]string, error) {
	accounts, err := w.s.Accounts(ctx)
	if err != nil {
		return nil, &SignerError{Op: "accounts", Err: err}
	}
	if accounts == nil {
		accounts = []string{}
	}
	return accounts, nil
}

func (w *Wallet) sendTransaction(ctx context.Context, req structs.Request) provider.Outcome {
	signed, err := w.completeAndSign(ctx, req, true)
	if err != nil {
		return provider.EndWithError(err)
	}

	resp, err := w.d.Dispatch(ctx, structs.Request{
		Method: MethodSendRawTransaction,
		Params: []any{signed.Raw},
	})
	if err != nil {
		return provider.EndWithError(err)
	}
	return provider.EndWithResponse(resp)
}

func (w *Wallet) signTransaction(ctx context.Context, req structs.Request) provider.Outcome {
	signed, err := w.completeAndSign(ctx, req, false)
	if err != nil {
		return provider.EndWithError(err)
	}
	return provider.End(signed)
}

func (w *Wallet) completeAndSign(ctx context.Context, req structs.Request, notify bool) (structs.SignedTx, error) {
	var partial structs.TxParams
	if err := req.DecodeParam(0, &partial); err != nil {
		return structs.SignedTx{}, &ValidationError{Field: "params", Err: fmt.Errorf("%w: %s", ErrTxParamsMissing, err.Error())}
	}

	if err := validateSender(partial.From); err != nil {
		return structs.SignedTx{}, err
	}
	if err := validateRecipient(partial); err != nil {
		return structs.SignedTx{}, err
	}

	tx, err := w.c.Complete(ctx, partial)
	if err != nil {
		return structs.SignedTx{}, err
	}
	if err := validateTxParams(tx); err != nil {
		return structs.SignedTx{}, err
	}

	if notify {
		w.notifyReady(ctx, tx)
	}

	timer := prometheus.NewTimer(w.m.SignTiming.WithLabelValues(req.Method))
	raw, err := w.s.SignTransaction(ctx, tx)
	timer.ObserveDuration()
	if err != nil {
		w.m.Signatures.WithLabelValues(req.Method, "error").Inc()
		return structs.SignedTx{}, &SignerError{Op: "signTransaction", Err: err}
	}
	w.m.Signatures.WithLabelValues(req.Method, "ok").Inc()

	signed := structs.SignedTx{Raw: raw, Tx: tx}
	w.record(ctx, signed)
	return signed, nil
}

func (w *Wallet) signMessage(ctx context.Context, method, data, addr string) provider.Outcome {
	if data == "" {
		return provider.EndWithError(&ValidationError{Err: ErrDataMissingForSignPersonalMessage})
	}
	if addr == "" || !address.IsAddress(addr) {
		return provider.EndWithError(&ValidationError{Field: "address", Err: ErrFromAddressMissingOrInvalid})
	}

	timer := prometheus.NewTimer(w.m.SignTiming.WithLabelValues(method))
	sig, err := w.s.SignPersonalMessage(ctx, data, addr)
	timer.ObserveDuration()
	if err != nil {
		w.m.Signatures.WithLabelValues(method, "error").Inc()
		return provider.EndWithError(&SignerError{Op: "signPersonalMessage", Err: err})
	}
	w.m.Signatures.WithLabelValues(method, "ok").Inc()
	return provider.End(sig)
}

func (w *Wallet) signTypedData(ctx context.Context, req structs.Request) provider.Outcome {
	addr, _ := req.StringParam(0)
	typedData, err := typedDataParam(req.Param(1))
	if err != nil {
		return provider.EndWithError(&ValidationError{Field: "typedData", Err: err})
	}
	if addr == "" || !address.IsAddress(addr) {
		return provider.EndWithError(&ValidationError{Field: "address", Err: ErrFromAddressMissingOrInvalid})
	}

	timer := prometheus.NewTimer(w.m.SignTiming.WithLabelValues(req.Method))
	sig, err := w.s.SignTypedData(ctx, addr, typedData)
	timer.ObserveDuration()
	if err != nil {
		w.m.Signatures.WithLabelValues(req.Method, "error").Inc()
		return provider.EndWithError(&SignerError{Op: "signTypedData", Err: err})
	}
	w.m.Signatures.WithLabelValues(req.Method, "ok").Inc()
	return provider.End(sig)
}

// typedDataParam accepts typed data either as a JSON object or as the JSON
// text of one, the way most dapps send it.
func typedDataParam(p any) (json.RawMessage, error) {
	switch v := p.(type) {
	case nil:
		return nil, ErrDataMissingForSignTypedData
	case string:
		if v == "" {
			return nil, ErrDataMissingForSignTypedData
		}
		if !json.Valid([]byte(v)) {
			return nil, fmt.Errorf("typed data is not valid json")
		}
		return json.RawMessage(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

func (w *Wallet) notifyReady(ctx context.Context, tx structs.TxParams) {
	if w.obs == nil {
		return
	}

	maxFee, err := MaxFee(tx)
	if err != nil {
		w.l.With(tx).WithError(err).Warn("failed to compute max fee")
		maxFee = "0"
	}

	value := tx.Value
	if value == "" {
		value = "0"
	}

	defer func() {
		if r := recover(); r != nil {
			w.l.WithField("panic", r).Error("transaction observer panicked")
		}
	}()

	w.obs.TransactionReady(ctx, structs.TransactionReady{
		From:    tx.From,
		To:      tx.To,
		MaxFee:  maxFee,
		Value:   value,
		ChainID: tx.ChainID,
	})
}

func (w *Wallet) record(ctx context.Context, signed structs.SignedTx) {
	if w.j == nil {
		return
	}
	if err := w.j.Record(ctx, signed); err != nil {
		w.l.With(signed.Tx).WithError(err).Warn("failed to journal signed transaction")
	}
}
