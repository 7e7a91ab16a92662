package badger

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v2"
	badgerds "github.com/ipfs/go-ds-badger2"
	"github.com/lthibault/log"
)

// Open opens a badger backed datastore in dir. Badger's own log output goes
// through l.
func Open(dir string, l log.Logger) (*badgerds.Datastore, error) {
	opts := badgerds.DefaultOptions
	opts.Options = opts.Options.WithLogger(&badgerLogger{l: l.WithField("module", "badger")})

	d, err := badgerds.NewDatastore(dir, &opts)
	if err != nil {
		return nil, fmt.Errorf("open badger in %s: %w", dir, err)
	}
	return d, nil
}

type badgerLogger struct {
	l log.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Errorf(format, args...)
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warnf(format, args...)
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debugf(format, args...)
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Trace(fmt.Sprintf(format, args...))
}
