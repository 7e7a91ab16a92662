package postgres

import (
	"embed"
	"errors"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the journal schema to version, or to the latest version when
// version is 0. It reports whether anything changed.
func Migrate(dbURL string, version uint) (changed bool, err error) {
	d, err := iofs.New(migrations, "migrations")
	if err != nil {
		return false, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, dbURL)
	if err != nil {
		return false, err
	}
	defer m.Close()

	if version > 0 {
		err = m.Migrate(version)
	} else {
		err = m.Up()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	return err == nil, err
}
