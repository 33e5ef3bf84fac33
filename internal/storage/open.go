package storage

import (
	"context"
	"fmt"
)

// Backend drivers accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Open connects the named backend and returns it with its closer.
// dsn is used by postgres, path by sqlite.
func Open(ctx context.Context, driver, dsn, path string) (Store, func(), error) {
	switch driver {
	case DriverPostgres:
		db, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case DriverSQLite:
		db, err := OpenLocal(path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	case DriverMemory:
		return NewMemory(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", driver)
}
