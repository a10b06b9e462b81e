package httpclient

import (
	"context"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	client "github.com/mutablelogic/go-client"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Info returns the storage backend and upload limits of the server. The
// endpoint path is normalised, so a trailing slash reaches the same route.
func (c *Client) Info(ctx context.Context) (*schema.ServiceInfo, error) {
	req := client.NewRequest()

	// Perform request
	var response schema.ServiceInfo
	if err := c.DoWithContext(ctx, req, &response, client.OptPath()); err != nil {
		return nil, err
	}

	// Return the response
	return &response, nil
}
