package db

import (
	"fmt"
)

type DBVendor string

const (
	LevelDB DBVendor = "leveldb"
	Bolt    DBVendor = "bolt"
	// Memory is an in-memory LevelDB, for tests and dry runs
	Memory DBVendor = "memory"
)

type DBOptions struct {
	// Directory is a LevelDB directory or a bolt file path
	Directory string
}

func CreateDBProvider(vendor DBVendor, options DBOptions) (IterableProvider, error) {
	var (
		provider IterableProvider
		err      error
	)
	switch vendor {
	case LevelDB:
		provider, err = NewLevelDBProvider(options.Directory)
	case Bolt:
		provider, err = NewBoltProvider(options.Directory)
	case Memory:
		provider, err = NewMemLevelDBProvider()
	default:
		return nil, fmt.Errorf("unsupported db provider: %s", vendor)
	}
	if err != nil {
		return nil, err
	}
	return provider, nil
}
