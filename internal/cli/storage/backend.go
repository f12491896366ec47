package storage

import "errors"

// ErrClosed is returned by backends used after Close
var ErrClosed = errors.New("storage backend closed")

// Entry is one stored key. Deleted entries are kept as tombstones so
// other processes can observe the removal.
type Entry struct {
	Key      string
	Value    []byte
	Writer   string
	Revision int64
	Deleted  bool
}

// Backend is the durable medium behind a Bridge
type Backend interface {
	Get(key string) (Entry, bool, error)
	Put(key string, value []byte, writer string) error
	Delete(key, writer string) error
	// List returns every entry whose key starts with prefix, tombstones included.
	List(prefix string) ([]Entry, error)
	Close() error
}
