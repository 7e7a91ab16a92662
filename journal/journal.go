// Package journal keeps the transactions signed through the wallet for a
// limited time, keyed by transaction hash.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	ds "github.com/ipfs/go-datastore"
	"github.com/lthibault/log"
	pkgerrors "github.com/pkg/errors"

	"github.com/blocknative/walletprovider/structs"
)

var ErrNotFound = errors.New("not found")

type TTLStorage interface {
	PutWithTTL(context.Context, ds.Key, []byte, time.Duration) error
	Get(context.Context, ds.Key) ([]byte, error)
}

type Entry struct {
	Hash       string           `json:"hash"`
	Raw        string           `json:"raw"`
	Tx         structs.TxParams `json:"tx"`
	RecordedAt time.Time        `json:"recordedAt"`
}

func EntryKey(hash string) ds.Key {
	return ds.NewKey("journal-" + strings.ToLower(hash))
}

// TxHash returns the hash of a raw signed transaction.
func TxHash(raw string) (string, error) {
	b, err := hexutil.Decode(raw)
	if err != nil {
		return "", pkgerrors.Wrap(err, "decode raw transaction")
	}
	return crypto.Keccak256Hash(b).Hex(), nil
}

type Journal struct {
	s   TTLStorage
	ttl time.Duration
	l   log.Logger
	m   JournalMetrics
}

func NewJournal(l log.Logger, s TTLStorage, ttl time.Duration) *Journal {
	j := &Journal{
		s:   s,
		ttl: ttl,
		l:   l.WithField("module", "journal"),
	}
	j.initMetrics()
	return j
}

// Record stores a signed transaction under its hash.
func (j *Journal) Record(ctx context.Context, tx structs.SignedTx) error {
	hash, err := TxHash(tx.Raw)
	if err != nil {
		j.m.Records.WithLabelValues("invalid").Inc()
		return err
	}

	data, err := json.Marshal(Entry{
		Hash:       hash,
		Raw:        tx.Raw,
		Tx:         tx.Tx,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(err, "marshal journal entry")
	}

	if err := j.s.PutWithTTL(ctx, EntryKey(hash), data, j.ttl); err != nil {
		j.m.Records.WithLabelValues("error").Inc()
		return pkgerrors.Wrapf(err, "store transaction %s", hash)
	}

	j.m.Records.WithLabelValues("ok").Inc()
	j.l.With(log.F{
		"hash": hash,
		"from": tx.Tx.From,
	}).Debug("signed transaction recorded")
	return nil
}

// Get returns the entry recorded for hash or ErrNotFound.
func (j *Journal) Get(ctx context.Context, hash string) (e Entry, err error) {
	data, err := j.s.Get(ctx, EntryKey(hash))
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return e, ErrNotFound
		}
		return e, pkgerrors.WithMessagef(err, "get transaction %s", hash)
	}
	if len(data) == 0 {
		return e, ErrNotFound
	}

	err = json.Unmarshal(data, &e)
	return e, err
}
