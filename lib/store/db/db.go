// Package db implements the opening and graceful closing of discovery index connections.
package db

import (
	"fmt"

	"github.com/tarancss/adpscan/lib/store"
	"github.com/tarancss/adpscan/lib/store/mongo"
	"github.com/tarancss/adpscan/lib/store/postgres"
)

const (
	MONGODB  string = "mongodb"
	POSTGRES string = "postgresql"
)

// New returns a new database connection according to the options (database type). An empty connection string
// disables the index and returns a nil DB.
func New(options, connection string) (store.DB, error) {
	if connection == "" {
		return nil, nil
	}

	switch options {
	case MONGODB:
		m, err := mongo.New(connection)
		if err != nil {
			return nil, err
		}

		return m, nil
	case POSTGRES:
		p, err := postgres.New(connection)
		if err != nil {
			return nil, err
		}

		return p, nil
	}

	return nil, fmt.Errorf("%w: %q", store.ErrUnknownType, options)
}
