// Package store defines the interface for database implementations of the discovery index. The index keeps the
// address and balances of every discovery so they can be listed and queried; private keys are never stored, they
// only live in the results artifact.
package store

import (
	"errors"
)

// DB defines required methods for the discovery index.
type DB interface {
	// SaveDiscovery stores a discovery and returns its id.
	SaveDiscovery(Discovery) ([]byte, error)
	// GetDiscoveries returns the stored discoveries with a positive balance on any of the networks in net, or all of
	// them when net is empty.
	GetDiscoveries([]string) ([]Discovery, error)
	Close() error
}

// Errors returned
var (
	ErrDataNotFound = errors.New("data was not found in store")
	ErrUnknownType  = errors.New("unknown database type")
)
