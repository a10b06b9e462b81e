// Package chunk maps a payload size onto an ordered sequence of byte ranges
// of bounded length.
package chunk

import (
	"fmt"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Count returns the number of chunks needed to carry total bytes in pieces
// of at most size bytes. It returns zero when total is zero or the arguments
// are invalid.
func Count(total, size int64) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + size - 1) / size)
}

// Split returns the chunks for a payload of total bytes, in index order.
// Every chunk except the last has Length == size; the last carries the
// remainder, which is in (0, size].
func Split(total, size int64) ([]schema.Chunk, error) {
	if err := validate(total, size); err != nil {
		return nil, err
	}
	n := Count(total, size)
	result := make([]schema.Chunk, 0, n)
	for i := range n {
		offset := int64(i) * size
		result = append(result, schema.Chunk{
			Index:  i,
			Offset: offset,
			Length: min(size, total-offset),
		})
	}
	return result, nil
}

// Length returns the expected length of the chunk at index.
func Length(total, size int64, index int) (int64, error) {
	if err := validate(total, size); err != nil {
		return 0, err
	}
	n := Count(total, size)
	if index < 0 || index >= n {
		return 0, fmt.Errorf("%w: chunk index %d out of range [0, %d)", schema.ErrInvalidChunk, index, n)
	}
	offset := int64(index) * size
	return min(size, total-offset), nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func validate(total, size int64) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", schema.ErrInvalidInput, size)
	}
	if total < 0 {
		return fmt.Errorf("%w: total size must not be negative, got %d", schema.ErrInvalidInput, total)
	}
	return nil
}
