package httphandler

import (
	"errors"

	// Packages
	manager "github.com/mutablelogic/go-chunkup/pkg/manager"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	jsonschema "github.com/mutablelogic/go-server/pkg/jsonschema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Router is the interface required to register HTTP handlers. Relative paths
// are joined to the router prefix.
type Router interface {
	Prefix() string
	RegisterPath(path string, params *jsonschema.Schema, pathitem httprequest.PathItem) error
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// RegisterHandlers registers the upload session and object handlers on the
// provided router.
func RegisterHandlers(mgr *manager.Manager, router Router) error {
	var result error
	register := func(path string, pathitem httprequest.PathItem) {
		result = errors.Join(result, router.RegisterPath(path, nil, pathitem))
	}
	register(rootPath(router.Prefix()), BackendHandler(mgr))
	register("upload", SessionListHandler(mgr))
	register("upload/{id}", SessionHandler(mgr))
	register("upload/{id}/{index}", ChunkHandler(mgr))
	register("object/{id}", ObjectHandler(mgr))
	return result
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// rootPath matches the prefix itself, without a trailing slash, since
// clients never send one. A bare "/" prefix would match every path so it is
// anchored instead.
func rootPath(prefix string) string {
	if prefix == "/" || prefix == "" {
		return "{$}"
	}
	return ""
}

// httpErr translates protocol errors into HTTP errors. Other errors pass
// through unchanged.
func httpErr(err error) error {
	switch {
	case errors.Is(err, schema.ErrInvalidInput), errors.Is(err, schema.ErrInvalidChunk):
		return httpresponse.ErrBadRequest.With(err.Error())
	case errors.Is(err, schema.ErrSessionNotFound), errors.Is(err, schema.ErrNotFound):
		return httpresponse.ErrNotFound.With(err.Error())
	case errors.Is(err, schema.ErrIncompleteUpload):
		return httpresponse.ErrConflict.With(err.Error())
	default:
		return err
	}
}
