// To handle all database interactions. This is our
// data access layer, keeping SQL queries separate from business logic.

package store

import (
	"database/sql"
	"errors"
)

// ErrLeaseLost is returned when a worker tries to settle an item whose claim
// has been taken over, e.g. after a stale-claim reclamation raced with a
// slow but still-alive invocation.
var ErrLeaseLost = errors.New("work item lease lost")

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}
