package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
)

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// statusErr wraps an HTTP rejection with the protocol error it stands for.
// A bad request maps to badRequest and not found maps to notFound, either of
// which may be nil. A conflict is always an incomplete upload. Anything else
// is returned unchanged.
func statusErr(err, badRequest, notFound error) error {
	var target error
	switch statusCode(err) {
	case http.StatusBadRequest:
		target = badRequest
	case http.StatusNotFound:
		target = notFound
	case http.StatusConflict:
		target = schema.ErrIncompleteUpload
	}
	if target == nil {
		return err
	}
	return fmt.Errorf("%w: %w", target, err)
}

// statusCode returns the HTTP status of an error returned by the client,
// or zero if the error did not come from a response.
func statusCode(err error) int {
	var resp httpresponse.ErrResponse
	var code httpresponse.Err
	switch {
	case err == nil:
		return 0
	case errors.As(err, &resp):
		return resp.Code
	case errors.As(err, &code):
		return int(code)
	default:
		return 0
	}
}
