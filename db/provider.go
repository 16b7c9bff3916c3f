package db

// DatabaseProvider is the key-value surface the keystore needs. Get returns
// nil, nil for a missing key.
type DatabaseProvider interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	Close() error

	// Batch returns a new batch for atomic writes
	Batch() DatabaseBatch
}

// IterableProvider extends DatabaseProvider with prefix scans.
type IterableProvider interface {
	DatabaseProvider

	// IteratePrefix visits keys with prefix in order until callback returns false
	IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error
}

// DatabaseBatch collects writes applied atomically by Write.
type DatabaseBatch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Write() error
	Reset()
	Close()
}
