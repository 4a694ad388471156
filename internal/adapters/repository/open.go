package repository

import (
	"context"
	"fmt"
	"strconv"
)

// DriverMemory selects the in-memory store.
const DriverMemory = "memory"

// Open returns the Store for driver. dsn is ignored for the memory driver.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(ctx, opts...), nil
	case DriverSQLite, DriverPostgres:
		s, err := OpenBunStore(ctx, driver, dsn, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("repository.Open: %q: %w", driver, ErrUnknownDriver)
	}
}

func parseStoredNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}
