package manager

import (
	"context"
	"fmt"
	"io"

	// Packages
	uuid "github.com/google/uuid"
	backend "github.com/mutablelogic/go-chunkup/pkg/backend"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	otel "github.com/mutablelogic/go-client/pkg/otel"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// GetObject returns the metadata of a completed upload.
func (manager *Manager) GetObject(ctx context.Context, id string) (_ *schema.Object, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("GetObject"))
	defer func() { endFunc(err) }()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: object %q", schema.ErrNotFound, id)
	}
	obj, err := manager.storage.GetObject(child, backend.ObjectPath(id))
	if err != nil {
		return nil, err
	}
	return withId(obj, id), nil
}

// ReadObject returns the content of a completed upload. Caller must close
// the returned reader.
func (manager *Manager) ReadObject(ctx context.Context, id string) (_ io.ReadCloser, _ *schema.Object, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("ReadObject"))
	defer func() { endFunc(err) }()

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, fmt.Errorf("%w: object %q", schema.ErrNotFound, id)
	}
	r, obj, err := manager.storage.ReadObject(child, backend.ObjectPath(id))
	if err != nil {
		return nil, nil, err
	}
	return r, withId(obj, id), nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func withId(obj *schema.Object, id string) *schema.Object {
	obj.Id = id
	if name, exists := obj.Meta[schema.AttrName]; exists {
		obj.Name = name
	}
	return obj
}
