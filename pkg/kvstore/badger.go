package kvstore

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/luxfi/safe4337/pkg/common/pathutil"
	"github.com/luxfi/safe4337/pkg/logger"
)

// BadgerKVStore is an implementation of the KVStore interface using Badger.
type BadgerKVStore struct {
	db *badger.DB
}

type BadgerConfig struct {
	DBPath string
	// InMemory ignores DBPath and keeps everything in RAM.
	InMemory bool
	// EncryptionKey enables Badger's at-rest encryption; 16, 24 or 32 bytes.
	EncryptionKey []byte
}

// NewBadgerKVStore opens (or creates) a Badger database.
func NewBadgerKVStore(config BadgerConfig) (*BadgerKVStore, error) {
	opts := badger.DefaultOptions(config.DBPath).
		WithLogger(badgerLogger{logger.Component("kvstore")})
	if config.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	} else if config.DBPath == "" {
		return nil, errors.New("kvstore: db path is required")
	}
	if len(config.EncryptionKey) > 0 {
		switch len(config.EncryptionKey) {
		case 16, 24, 32:
		default:
			return nil, fmt.Errorf("kvstore: encryption key must be 16, 24 or 32 bytes, got %d", len(config.EncryptionKey))
		}
		opts = opts.WithEncryptionKey(config.EncryptionKey).WithIndexCacheSize(16 << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open badger: %w", err)
	}

	logger.Debug("Opened badger store", "path", config.DBPath, "inMemory", config.InMemory)
	return &BadgerKVStore{db: db}, nil
}

// Put stores a key-value pair.
func (b *BadgerKVStore) Put(key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Get retrieves the value associated with a key.
func (b *BadgerKVStore) Get(key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return out, err
}

// Keys lists keys starting with prefix in lexical order.
func (b *BadgerKVStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Delete removes a key-value pair. Deleting a missing key is not an error.
func (b *BadgerKVStore) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Backup writes a full backup into dir and returns the file path.
func (b *BadgerKVStore) Backup(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	name := fmt.Sprintf("backup-%s.bak", time.Now().UTC().Format("2006-01-02_15-04-05.000000000"))
	path, err := pathutil.Join(dir, name)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := b.db.Backup(f, 0); err != nil {
		return "", fmt.Errorf("kvstore: backup: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", err
	}
	logger.Info("Backup written", "path", path)
	return path, nil
}

// Restore loads a file produced by Backup into the store.
func (b *BadgerKVStore) Restore(path string) error {
	if err := pathutil.CheckNoTraversal(path); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := b.db.Load(f, 256); err != nil {
		return fmt.Errorf("kvstore: restore: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *BadgerKVStore) Close() error {
	return b.db.Close()
}

// badgerLogger routes Badger's internal logging through zerolog.
type badgerLogger struct {
	zerolog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.Logger.Error().Msgf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.Logger.Warn().Msgf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.Logger.Debug().Msgf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.Logger.Trace().Msgf(f, v...) }
