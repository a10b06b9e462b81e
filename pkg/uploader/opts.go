package uploader

import (
	"fmt"
	"time"

	// Packages
	chunkup "github.com/mutablelogic/go-chunkup"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for the uploader.
type Opt func(*opts) error

type opts struct {
	logger          chunkup.Logger
	chunkSize       int64
	chunkTimeout    time.Duration
	completeTimeout time.Duration
	cancelTimeout   time.Duration
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	DefaultChunkTimeout    = 60 * time.Second
	DefaultCompleteTimeout = 5 * time.Minute
	DefaultCancelTimeout   = 10 * time.Second
)

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithLogger sets the logger for cleanup failures.
func WithLogger(logger chunkup.Logger) Opt {
	return func(o *opts) error {
		o.logger = logger
		return nil
	}
}

// WithChunkSize sets the chunk size assumed when declaring an upload. It
// must match the chunk size of the store.
func WithChunkSize(size int64) Opt {
	return func(o *opts) error {
		if size <= 0 {
			return fmt.Errorf("chunk size must be positive, got %d", size)
		}
		o.chunkSize = size
		return nil
	}
}

// WithChunkTimeout bounds the delivery of each chunk.
func WithChunkTimeout(d time.Duration) Opt {
	return func(o *opts) error {
		if d <= 0 {
			return fmt.Errorf("chunk timeout must be positive, got %v", d)
		}
		o.chunkTimeout = d
		return nil
	}
}

// WithCompleteTimeout bounds the completion request, which includes
// server-side reassembly.
func WithCompleteTimeout(d time.Duration) Opt {
	return func(o *opts) error {
		if d <= 0 {
			return fmt.Errorf("complete timeout must be positive, got %v", d)
		}
		o.completeTimeout = d
		return nil
	}
}

// WithCancelTimeout bounds the best-effort cancel after a failure.
func WithCancelTimeout(d time.Duration) Opt {
	return func(o *opts) error {
		if d <= 0 {
			return fmt.Errorf("cancel timeout must be positive, got %v", d)
		}
		o.cancelTimeout = d
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	o := opts{
		chunkSize:       schema.DefaultChunkSize,
		chunkTimeout:    DefaultChunkTimeout,
		completeTimeout: DefaultCompleteTimeout,
		cancelTimeout:   DefaultCancelTimeout,
	}
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return o, err
		}
	}
	return o, nil
}
