// Package hd implements a signer backed by a BIP-39 mnemonic. Keys are derived
// along m/<base path>/<index>.
package hd

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/lthibault/log"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/blocknative/walletprovider/structs"
	"github.com/blocknative/walletprovider/wallet"
)

const (
	DefaultSearchLimit  = 1000
	DefaultNumAddresses = 10
	DefaultChainID      = 1
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

type Config struct {
	Mnemonic     string
	Passphrase   string
	BasePath     string
	SearchLimit  int
	NumAddresses int
	// ChainID signs transactions that do not carry one.
	ChainID uint64
}

type derivedKey struct {
	index   int
	address string
	key     *ecdsa.PrivateKey
}

type Signer struct {
	base    *bip32.Key
	limit   int
	count   int
	chainID uint64

	mu    sync.Mutex
	keys  map[string]derivedKey
	next  int
	order []string

	l log.Logger
}

func New(l log.Logger, cfg Config) (*Signer, error) {
	if !bip39.IsMnemonicValid(cfg.Mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	if cfg.NumAddresses <= 0 {
		cfg.NumAddresses = DefaultNumAddresses
	}
	if cfg.NumAddresses > cfg.SearchLimit {
		cfg.NumAddresses = cfg.SearchLimit
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = DefaultChainID
	}

	path, err := ParsePath(cfg.BasePath)
	if err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(cfg.Mnemonic, cfg.Passphrase)
	base, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	for _, idx := range path {
		if base, err = base.NewChildKey(idx); err != nil {
			return nil, fmt.Errorf("derive %s: %w", cfg.BasePath, err)
		}
	}

	s := &Signer{
		base:    base,
		limit:   cfg.SearchLimit,
		count:   cfg.NumAddresses,
		chainID: cfg.ChainID,
		keys:    make(map[string]derivedKey),
		l: l.With(log.F{
			"module":   "hdSigner",
			"basePath": cfg.BasePath,
		}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deriveUpTo(cfg.NumAddresses); err != nil {
		return nil, err
	}
	return s, nil
}

// deriveUpTo derives keys until n of them are known. Callers hold mu.
func (s *Signer) deriveUpTo(n int) error {
	for ; s.next < n; s.next++ {
		child, err := s.base.NewChildKey(uint32(s.next))
		if err != nil {
			return fmt.Errorf("derive index %d: %w", s.next, err)
		}
		key, err := crypto.ToECDSA(child.Key)
		if err != nil {
			return fmt.Errorf("index %d: %w", s.next, err)
		}

		addr := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
		s.keys[addr] = derivedKey{index: s.next, address: addr, key: key}
		s.order = append(s.order, addr)
	}
	return nil
}

func (s *Signer) Accounts(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]string, s.count)
	copy(accounts, s.order[:s.count])
	return accounts, nil
}

// keyFor returns the key for address, deriving more keys up to the search
// limit when needed.
func (s *Signer) keyFor(address string) (derivedKey, error) {
	if !common.IsHexAddress(address) {
		return derivedKey{}, wallet.ErrAddressNotFound
	}
	addr := strings.ToLower(common.HexToAddress(address).Hex())

	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.keys[addr]; ok {
		return k, nil
	}

	for s.next < s.limit {
		if err := s.deriveUpTo(s.next + 1); err != nil {
			return derivedKey{}, err
		}
		if k, ok := s.keys[addr]; ok {
			s.l.With(log.F{
				"address": addr,
				"index":   k.index,
			}).Debug("derived key for address")
			return k, nil
		}
	}
	return derivedKey{}, wallet.ErrAddressNotFound
}

func (s *Signer) SignTransaction(ctx context.Context, p structs.TxParams) (string, error) {
	k, err := s.keyFor(p.From)
	if err != nil {
		return "", err
	}

	chainID := uint64(p.ChainID)
	if chainID == 0 {
		chainID = s.chainID
	}

	txdata, err := buildTx(p, chainID)
	if err != nil {
		return "", err
	}

	signed, err := types.SignNewTx(k.key, types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)), txdata)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", err
	}
	return hexutil.Encode(raw), nil
}

func (s *Signer) SignPersonalMessage(ctx context.Context, data, address string) (string, error) {
	k, err := s.keyFor(address)
	if err != nil {
		return "", err
	}
	return sign(k.key, accounts.TextHash(messageBytes(data)))
}

func (s *Signer) SignTypedData(ctx context.Context, address string, typedData json.RawMessage) (string, error) {
	k, err := s.keyFor(address)
	if err != nil {
		return "", err
	}

	digest, err := TypedDataDigest(typedData)
	if err != nil {
		return "", err
	}
	return sign(k.key, digest)
}

// TypedDataDigest returns the EIP-712 digest of typed data.
func TypedDataDigest(raw json.RawMessage) ([]byte, error) {
	var td apitypes.TypedData
	if err := json.Unmarshal(raw, &td); err != nil {
		return nil, fmt.Errorf("invalid typed data json: %w", err)
	}

	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("domain hash: %w", err)
	}
	msgHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("message hash: %w", err)
	}

	return crypto.Keccak256([]byte{0x19, 0x01}, domainSeparator, msgHash), nil
}

// sign produces a 65 byte signature with v in {27, 28}.
func sign(key *ecdsa.PrivateKey, digest []byte) (string, error) {
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// messageBytes decodes 0x-prefixed hex messages and takes anything else as
// utf-8 text.
func messageBytes(data string) []byte {
	if b, err := hexutil.Decode(data); err == nil {
		return b
	}
	return []byte(data)
}

func buildTx(p structs.TxParams, chainID uint64) (types.TxData, error) {
	var (
		q   = quantities{}
		to  *common.Address
		err error
	)

	if p.To != "" {
		addr := common.HexToAddress(p.To)
		to = &addr
	}

	nonce := q.uint64("nonce", p.Nonce)
	gas := q.uint64("gas", p.GasCap())
	value := q.big("value", p.Value)
	txType := q.uint64("type", p.Type)

	feeCap := p.MaxFeePerGas
	if feeCap == "" {
		feeCap = p.GasPrice
	}
	tipCap := p.MaxPriorityFeePerGas
	if tipCap == "" {
		tipCap = feeCap
	}
	gasPrice := q.big("gasPrice", p.GasPrice)
	gasFeeCap := q.big("maxFeePerGas", feeCap)
	gasTipCap := q.big("maxPriorityFeePerGas", tipCap)
	if q.err != nil {
		return nil, q.err
	}

	var data []byte
	if payload := p.Payload(); payload != "" {
		if data, err = hexutil.Decode(payload); err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
	}

	var al types.AccessList
	if len(p.AccessList) > 0 && string(p.AccessList) != "null" {
		if err := json.Unmarshal(p.AccessList, &al); err != nil {
			return nil, fmt.Errorf("accessList: %w", err)
		}
	}

	switch txType {
	case types.LegacyTxType:
		return &types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       to,
			Value:    value,
			Data:     data,
		}, nil

	case types.AccessListTxType:
		return &types.AccessListTx{
			ChainID:    new(big.Int).SetUint64(chainID),
			Nonce:      nonce,
			GasPrice:   gasPrice,
			Gas:        gas,
			To:         to,
			Value:      value,
			Data:       data,
			AccessList: al,
		}, nil

	case types.DynamicFeeTxType:
		return &types.DynamicFeeTx{
			ChainID:    new(big.Int).SetUint64(chainID),
			Nonce:      nonce,
			GasTipCap:  gasTipCap,
			GasFeeCap:  gasFeeCap,
			Gas:        gas,
			To:         to,
			Value:      value,
			Data:       data,
			AccessList: al,
		}, nil
	}

	return nil, fmt.Errorf("unsupported transaction type %s", p.Type)
}

// quantities keeps the first parse error so that fields can be converted
// in sequence.
type quantities struct {
	err error
}

func (q *quantities) big(field, s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	v, err := structs.ParseQuantity(s)
	if err != nil && q.err == nil {
		q.err = fmt.Errorf("%s: %w", field, err)
	}
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (q *quantities) uint64(field, s string) uint64 {
	v := q.big(field, s)
	if !v.IsUint64() {
		if q.err == nil {
			q.err = fmt.Errorf("%s: %s does not fit in 64 bits", field, s)
		}
		return 0
	}
	return v.Uint64()
}
