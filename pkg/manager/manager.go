package manager

import (
	"context"
	"errors"
	"fmt"
	"slices"

	// Packages
	uuid "github.com/google/uuid"
	chunkup "github.com/mutablelogic/go-chunkup"
	backend "github.com/mutablelogic/go-chunkup/pkg/backend"
	registry "github.com/mutablelogic/go-chunkup/pkg/registry"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	attribute "go.opentelemetry.io/otel/attribute"
	metric "go.opentelemetry.io/otel/metric"
	noop "go.opentelemetry.io/otel/metric/noop"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Manager is the session store. It owns session records and chunk bytes,
// and serializes operations on the same session.
type Manager struct {
	opts
	locks    keyedMutex
	sessions metric.Int64Counter
	chunks   metric.Int64Counter
	bytes    metric.Int64Counter
}

var _ chunkup.Store = (*Manager)(nil)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a new session manager. Without a backend, chunks and objects
// are kept in memory.
func New(ctx context.Context, opts ...Opt) (*Manager, error) {
	self := new(Manager)

	// Apply options
	if opt, err := applyOpts(opts); err != nil {
		return nil, err
	} else {
		self.opts = opt
	}

	// Set default storage
	if self.storage == nil {
		if b, err := backend.NewBlobBackend(ctx, "mem://"+schema.SchemaName); err != nil {
			return nil, errors.Join(err, self.opts.close())
		} else {
			self.storage = b
		}
	}
	if self.registry == nil {
		self.registry = registry.NewMemory()
	}

	// Set up metrics
	if err := self.initMetrics(); err != nil {
		return nil, errors.Join(err, self.opts.close())
	}

	// Return success
	return self, nil
}

// Close the storage backend and registry
func (manager *Manager) Close() error {
	return manager.opts.close()
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// ChunkSize returns the chunk size agreed with clients.
func (manager *Manager) ChunkSize() int64 {
	return manager.chunkSize
}

// Info returns the limits applied by Init.
func (manager *Manager) Info() schema.ServiceInfo {
	return schema.ServiceInfo{
		Storage:    manager.storage.URL().Redacted(),
		ChunkSize:  manager.chunkSize,
		MaxSize:    manager.maxSize,
		Extensions: slices.Clone(manager.extensions),
	}
}

// Storage returns the chunk and object storage backend.
func (manager *Manager) Storage() backend.Backend {
	return manager.storage
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (manager *Manager) initMetrics() error {
	meter := manager.meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(schema.SchemaName)
	}
	var err error
	if manager.sessions, err = meter.Int64Counter(schema.SchemaName+".sessions",
		metric.WithDescription("Upload sessions by state transition"),
	); err != nil {
		return err
	}
	if manager.chunks, err = meter.Int64Counter(schema.SchemaName+".chunks",
		metric.WithDescription("Chunks stored"),
	); err != nil {
		return err
	}
	if manager.bytes, err = meter.Int64Counter(schema.SchemaName+".bytes",
		metric.WithDescription("Chunk bytes stored"),
		metric.WithUnit("By"),
	); err != nil {
		return err
	}
	return nil
}

// lock acquires the mutex for a session and returns the function which
// releases it. Distinct sessions never share a mutex.
func (manager *Manager) lock(id string) func() {
	return manager.locks.lock(id)
}

func (manager *Manager) countSession(ctx context.Context, state schema.State) {
	manager.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(state))))
}

func (manager *Manager) logf(ctx context.Context, format string, args ...any) {
	if manager.logger != nil {
		manager.logger.Printf(ctx, format, args...)
	}
}

func (manager *Manager) debugf(ctx context.Context, format string, args ...any) {
	if manager.logger != nil {
		manager.logger.Debugf(ctx, format, args...)
	}
}

// validId rejects ids which could not have been issued by Init, so they
// never reach storage keys.
func validId(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", schema.ErrSessionNotFound, id)
	}
	return nil
}

func spanManagerName(op string) string {
	return schema.SchemaName + ".manager." + op
}
