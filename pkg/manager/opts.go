package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	// Packages
	chunkup "github.com/mutablelogic/go-chunkup"
	backend "github.com/mutablelogic/go-chunkup/pkg/backend"
	registry "github.com/mutablelogic/go-chunkup/pkg/registry"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	metric "go.opentelemetry.io/otel/metric"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for session manager configuration.
type Opt func(*opts) error

type opts struct {
	tracer     trace.Tracer
	meter      metric.Meter
	logger     chunkup.Logger
	notifier   chunkup.Notifier
	storage    backend.Backend
	registry   registry.Registry
	chunkSize  int64
	maxSize    int64
	extensions []string
	idle       time.Duration
	retention  time.Duration
	interval   time.Duration
	now        func() time.Time
}

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithTracer sets the tracer used for tracing operations.
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opts) error {
		o.tracer = tracer
		return nil
	}
}

// WithMeter sets the meter used to count sessions, chunks and bytes.
func WithMeter(meter metric.Meter) Opt {
	return func(o *opts) error {
		o.meter = meter
		return nil
	}
}

// WithLogger sets the logger for lifecycle and cleanup messages.
func WithLogger(logger chunkup.Logger) Opt {
	return func(o *opts) error {
		o.logger = logger
		return nil
	}
}

// WithNotifier sets a notifier which is told about each completed object.
func WithNotifier(notifier chunkup.Notifier) Opt {
	return func(o *opts) error {
		o.notifier = notifier
		return nil
	}
}

// WithBackend opens a blob backend (mem://, file://, s3://) for chunk and
// object storage.
func WithBackend(ctx context.Context, url string, backendOpts ...backend.Opt) Opt {
	return func(o *opts) error {
		if o.storage != nil {
			return fmt.Errorf("storage backend already set")
		}
		b, err := backend.NewBlobBackend(ctx, url, backendOpts...)
		if err != nil {
			return err
		}
		o.storage = b
		return nil
	}
}

// WithStorage sets the chunk and object storage backend.
func WithStorage(storage backend.Backend) Opt {
	return func(o *opts) error {
		if o.storage != nil {
			return fmt.Errorf("storage backend already set")
		}
		o.storage = storage
		return nil
	}
}

// WithRegistry sets where session records are kept. The default is memory.
func WithRegistry(r registry.Registry) Opt {
	return func(o *opts) error {
		o.registry = r
		return nil
	}
}

// WithChunkSize sets the size of every chunk except the last.
func WithChunkSize(size int64) Opt {
	return func(o *opts) error {
		if size <= 0 {
			return fmt.Errorf("%w: chunk size must be positive", schema.ErrInvalidInput)
		}
		o.chunkSize = size
		return nil
	}
}

// WithMaxSize sets the largest payload accepted by Init.
func WithMaxSize(size int64) Opt {
	return func(o *opts) error {
		if size <= 0 {
			return fmt.Errorf("%w: maximum size must be positive", schema.ErrInvalidInput)
		}
		o.maxSize = size
		return nil
	}
}

// WithExtensions sets the accepted filename extensions, compared without
// case. No extensions accepts any filename.
func WithExtensions(ext ...string) Opt {
	return func(o *opts) error {
		var list []string
		for _, e := range ext {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			list = append(list, e)
		}
		o.extensions = list
		return nil
	}
}

// WithIdleTimeout sets how long a session may go without a chunk before
// Reclaim expires it.
func WithIdleTimeout(d time.Duration) Opt {
	return func(o *opts) error {
		if d <= 0 {
			return fmt.Errorf("%w: idle timeout must be positive", schema.ErrInvalidInput)
		}
		o.idle = d
		return nil
	}
}

// WithRetention sets how long finished session records are kept.
func WithRetention(d time.Duration) Opt {
	return func(o *opts) error {
		if d <= 0 {
			return fmt.Errorf("%w: retention must be positive", schema.ErrInvalidInput)
		}
		o.retention = d
		return nil
	}
}

// WithReclaimInterval sets the period between reclaim passes in Run.
func WithReclaimInterval(d time.Duration) Opt {
	return func(o *opts) error {
		if d <= 0 {
			return fmt.Errorf("%w: reclaim interval must be positive", schema.ErrInvalidInput)
		}
		o.interval = d
		return nil
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Opt {
	return func(o *opts) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		o.now = now
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	// Set defaults
	o := opts{
		chunkSize:  schema.DefaultChunkSize,
		maxSize:    schema.DefaultMaxSize,
		extensions: schema.DefaultExtensions,
		idle:       schema.DefaultIdleTimeout,
		retention:  schema.DefaultRetention,
		interval:   schema.DefaultReclaimInterval,
		now:        time.Now,
	}

	// Apply options
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, errors.Join(err, o.close())
		}
	}

	// Return success
	return o, nil
}

// close releases any storage opened while applying options
func (o *opts) close() error {
	var result error
	if o.storage != nil {
		result = errors.Join(result, o.storage.Close())
	}
	if o.registry != nil {
		result = errors.Join(result, o.registry.Close())
	}
	return result
}
