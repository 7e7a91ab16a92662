package journal_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lthibault/log"
	"github.com/stretchr/testify/require"

	"github.com/blocknative/walletprovider/journal"
	tBadger "github.com/blocknative/walletprovider/journal/transport/badger"
	"github.com/blocknative/walletprovider/structs"
)

var logger = log.New(log.WithWriter(io.Discard))

const rawTx = "0x02f86b0507843b9aca00843b9aca0082520894fb6916095ca1df60bb79ce92ce3ea74c37c5d3598080c001a0"

func TestRecordGet(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := filepath.Join(os.TempDir(), t.Name()+uuid.New().String())
	defer os.RemoveAll(dir)

	tB, err := tBadger.Open(dir, logger)
	require.NoError(t, err)
	defer tB.Close()

	j := journal.NewJournal(logger, tB, time.Minute)

	signed := structs.SignedTx{
		Raw: rawTx,
		Tx:  structs.TxParams{From: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", Nonce: "0x7"},
	}
	require.NoError(t, j.Record(ctx, signed))

	hash, err := journal.TxHash(rawTx)
	require.NoError(t, err)

	e, err := j.Get(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, hash, e.Hash)
	require.Equal(t, rawTx, e.Raw)
	require.Equal(t, signed.Tx, e.Tx)
	require.False(t, e.RecordedAt.IsZero())

	_, err = j.Get(ctx, "0x00")
	require.ErrorIs(t, err, journal.ErrNotFound)
}

func TestRecordInvalidRaw(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(os.TempDir(), t.Name()+uuid.New().String())
	defer os.RemoveAll(dir)

	tB, err := tBadger.Open(dir, logger)
	require.NoError(t, err)
	defer tB.Close()

	j := journal.NewJournal(logger, tB, time.Minute)
	require.Error(t, j.Record(context.Background(), structs.SignedTx{Raw: "not hex"}))
}

func TestTxHash(t *testing.T) {
	t.Parallel()

	hash, err := journal.TxHash("0x")
	require.NoError(t, err)
	// keccak256 of empty input
	require.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", hash)

	require.Equal(t, journal.EntryKey("0xABCD"), journal.EntryKey("0xabcd"))
}
