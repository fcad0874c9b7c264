package kvstore

import "errors"

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("kvstore: key not found")

// KVStore is a flat string-keyed byte store.
type KVStore interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
	Keys(prefix string) ([]string, error)
	Delete(key string) error
	Close() error
}
