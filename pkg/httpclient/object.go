package httpclient

import (
	"context"
	"fmt"
	"net/http"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	client "github.com/mutablelogic/go-client"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// GetObject retrieves metadata only for a completed upload using HEAD (no
// body download).
func (c *Client) GetObject(ctx context.Context, id string) (*schema.Object, error) {
	var response getObjectResponse
	if err := c.DoWithContext(ctx,
		client.NewRequestEx(http.MethodHead, ""),
		&response,
		client.OptPath("object", id),
	); err != nil {
		return nil, statusErr(err, schema.ErrInvalidInput, schema.ErrNotFound)
	}
	if response.Object == nil {
		return nil, fmt.Errorf("GetObject: missing %s header in response", schema.ObjectMetaHeader)
	}
	return response.Object, nil
}

// ReadObject downloads a completed upload using GET, calling fn with each
// chunk of data as it arrives from the server. fn may be nil when only
// metadata is needed. The slice passed to fn is reused across calls; copy it
// if retained.
func (c *Client) ReadObject(ctx context.Context, id string, fn func([]byte) error) (*schema.Object, error) {
	u := &readObjectUnmarshaler{fn: fn}
	if err := c.DoWithContext(ctx,
		client.NewRequest(),
		u,
		client.OptPath("object", id),
	); err != nil {
		return nil, statusErr(err, schema.ErrInvalidInput, schema.ErrNotFound)
	}
	if u.obj == nil {
		return nil, fmt.Errorf("ReadObject: missing %s header in response", schema.ObjectMetaHeader)
	}
	return u.obj, nil
}
