package db

import "errors"

var (
	// ErrIndexNotFound is returned when a search or probe names an index the backend does not know.
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrIndexExists is returned by CreateIndex when the name is taken.
	ErrIndexExists = errors.New("db: index already exists")
)

// Command names recorded in Error.Op.
const (
	OpPing        = "PING"
	OpPutHash     = "HSET"
	OpGetHash     = "HGETALL"
	OpDelete      = "DEL"
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
)

// Error records which backend command failed.
// Anything above the db layer treats it as the index being unavailable.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }
