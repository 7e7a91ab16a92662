// Package notify delivers pre-signing notifications to whoever has to
// confirm a transaction.
package notify

import (
	"context"

	"github.com/lthibault/log"

	"github.com/blocknative/walletprovider/structs"
)

type Observer interface {
	TransactionReady(ctx context.Context, ev structs.TransactionReady)
}

// Multi fans a notification out to every observer in order.
type Multi []Observer

func (m Multi) TransactionReady(ctx context.Context, ev structs.TransactionReady) {
	for _, o := range m {
		o.TransactionReady(ctx, ev)
	}
}

type Logger struct {
	l log.Logger
}

func NewLogger(l log.Logger) *Logger {
	return &Logger{l: l.WithField("module", "notify")}
}

func (lo *Logger) TransactionReady(_ context.Context, ev structs.TransactionReady) {
	lo.l.With(log.F{
		"from":    ev.From,
		"to":      ev.To,
		"value":   ev.Value,
		"maxFee":  ev.MaxFee,
		"chainId": uint64(ev.ChainID),
	}).Info("transaction ready for signing")
}
