// Package state persists the last-known applied state of resources. The
// engine consumes the Store interface only; backends live behind it.
package state

import (
	"errors"

	"github.com/fabrik-io/fabrik/internal/ir"
)

// ErrNotFound is returned by Get when no record exists for an address.
var ErrNotFound = errors.New("state: record not found")

// Store reads and writes per-resource state records. Implementations must
// provide read-your-writes consistency within a single run and per-address
// write atomicity; the engine never writes the same address twice in one
// apply.
type Store interface {
	// Get returns the record for an address, or ErrNotFound.
	Get(address string) (*ir.Record, error)

	// Put creates or replaces the record for the record's address.
	Put(record *ir.Record) error

	// Delete removes the record for an address. Deleting an absent
	// address is not an error.
	Delete(address string) error

	// List returns every record, in unspecified order.
	List() ([]*ir.Record, error)

	// Close releases any backend resources (locks, file handles).
	Close() error
}
