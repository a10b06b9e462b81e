package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	client "github.com/mutablelogic/go-client"
	types "github.com/mutablelogic/go-server/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - SESSION PROTOCOL

// Init opens an upload session.
func (c *Client) Init(ctx context.Context, req schema.InitRequest) (*schema.InitResponse, error) {
	payload, err := client.NewJSONRequest(req)
	if err != nil {
		return nil, err
	}

	// Perform request
	var response schema.InitResponse
	if err := c.DoWithContext(ctx, payload, &response, client.OptPath("upload")); err != nil {
		return nil, statusErr(err, schema.ErrInvalidInput, nil)
	}

	// Return the response
	return &response, nil
}

// PutChunk delivers the chunk at index, reading the chunk from r.
func (c *Client) PutChunk(ctx context.Context, id string, index int, r io.Reader) (*schema.ChunkResponse, error) {
	payload := newChunkPayload(r)

	// Perform request
	var response schema.ChunkResponse
	if err := c.DoWithContext(ctx, payload, &response, client.OptPath("upload", id, strconv.Itoa(index))); err != nil {
		return nil, fmt.Errorf("chunk %d (%d bytes sent): %w", index, payload.n, statusErr(err, schema.ErrInvalidChunk, schema.ErrSessionNotFound))
	}

	// Return the response
	return &response, nil
}

// Complete reassembles the session into an object.
func (c *Client) Complete(ctx context.Context, id string) (*schema.Object, error) {
	var response schema.Object
	if err := c.DoWithContext(ctx,
		client.NewRequestEx(http.MethodPost, types.ContentTypeJSON),
		&response,
		client.OptPath("upload", id),
	); err != nil {
		return nil, statusErr(err, schema.ErrInvalidInput, schema.ErrSessionNotFound)
	}
	return &response, nil
}

// Cancel discards the session.
func (c *Client) Cancel(ctx context.Context, id string) error {
	var response schema.CancelResponse
	if err := c.DoWithContext(ctx,
		client.NewRequestEx(http.MethodDelete, types.ContentTypeJSON),
		&response,
		client.OptPath("upload", id),
	); err != nil {
		return statusErr(err, schema.ErrInvalidInput, schema.ErrSessionNotFound)
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - SESSION QUERIES

// GetSession returns an upload session in any state.
func (c *Client) GetSession(ctx context.Context, id string) (*schema.UploadSession, error) {
	var response schema.UploadSession
	if err := c.DoWithContext(ctx, nil, &response, client.OptPath("upload", id)); err != nil {
		return nil, statusErr(err, schema.ErrInvalidInput, schema.ErrSessionNotFound)
	}
	return &response, nil
}

// ListSessions returns upload sessions in creation order.
func (c *Client) ListSessions(ctx context.Context, req schema.SessionListRequest) (*schema.SessionList, error) {
	query := make(url.Values)
	if req.Offset > 0 {
		query.Set("offset", strconv.Itoa(req.Offset))
	}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.State != "" {
		query.Set("state", string(req.State))
	}

	var response schema.SessionList
	if err := c.DoWithContext(ctx, client.NewRequest(), &response,
		client.OptPath("upload"),
		client.OptQuery(query),
	); err != nil {
		return nil, statusErr(err, schema.ErrInvalidInput, nil)
	}
	return &response, nil
}
