package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	ds "github.com/ipfs/go-datastore"
	_ "github.com/lib/pq"
)

func Open(dbURL string, maxOpen, maxIdle int, maxIdleTime time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(maxIdleTime)

	// test db connection
	if err = db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

// Datastore keeps journal entries in the journal_entries table created by
// the journal migrations.
type Datastore struct {
	DB *sql.DB
}

func NewDatastore(db *sql.DB) *Datastore {
	return &Datastore{DB: db}
}

func (s *Datastore) PutWithTTL(ctx context.Context, key ds.Key, b []byte, ttl time.Duration) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO journal_entries(key, data, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
		key.String(), b, time.Now().Add(ttl).UTC())
	return err
}

func (s *Datastore) Get(ctx context.Context, key ds.Key) (b []byte, err error) {
	row := s.DB.QueryRowContext(ctx, `SELECT data FROM journal_entries WHERE key = $1 AND expires_at > NOW()`, key.String())
	if err = row.Scan(&b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ds.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// RemoveExpired deletes entries past their expiry and returns how many went.
func (s *Datastore) RemoveExpired(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM journal_entries WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
