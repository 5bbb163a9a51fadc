package runtime

import (
	"context"
	"errors"

	"github.com/rzbill/pulse/internal/auth"
	cfgpkg "github.com/rzbill/pulse/internal/config"
	"github.com/rzbill/pulse/internal/eventstore"
	pebblestore "github.com/rzbill/pulse/internal/storage/pebble"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	Fsync   pebblestore.FsyncMode
	Config  cfgpkg.Config
}

// Runtime owns the storage handle and hands out domain stores backed
// by it.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync})
	if err != nil {
		return nil, err
	}
	return &Runtime{db: db, config: opts.Config}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// OpenEventStore returns the event store backed by this runtime.
func (r *Runtime) OpenEventStore() *eventstore.Store {
	return eventstore.Open(r.db)
}

// OpenKeyStore returns the API key store backed by this runtime.
func (r *Runtime) OpenKeyStore() *auth.Store {
	return auth.OpenStore(r.db)
}

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
