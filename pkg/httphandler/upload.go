package httphandler

import (
	"net/http"
	"strconv"

	// Packages
	manager "github.com/mutablelogic/go-chunkup/pkg/manager"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi"
)

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: <prefix>/upload/{id}
// GET returns the session, POST completes it and DELETE cancels it.
func SessionHandler(mgr *manager.Manager) httprequest.PathItem {
	return httprequest.NewPathItem("Upload session", "Get, complete or cancel an upload session", "upload").
		Get(func(w http.ResponseWriter, r *http.Request) {
			_ = sessionGet(w, r, mgr)
		}, "Get session").
		Post(func(w http.ResponseWriter, r *http.Request) {
			_ = sessionComplete(w, r, mgr)
		}, "Complete session", openapi.WithDescription("Complete an upload session, reassembling its chunks into an object")).
		Delete(func(w http.ResponseWriter, r *http.Request) {
			_ = sessionCancel(w, r, mgr)
		}, "Cancel session", openapi.WithDescription("Cancel an upload session and discard its chunks"))
}

// Path: <prefix>/upload/{id}/{index}
// PUT delivers the chunk at index as the request body.
func ChunkHandler(mgr *manager.Manager) httprequest.PathItem {
	return httprequest.NewPathItem("Chunk", "Chunk delivery", "upload").
		Put(func(w http.ResponseWriter, r *http.Request) {
			_ = chunkPut(w, r, mgr)
		}, "Put chunk", openapi.WithDescription("Deliver one chunk of an upload session"))
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func sessionGet(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	session, err := mgr.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		return httpresponse.Error(w, httpErr(err))
	}
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), session)
}

func sessionComplete(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	obj, err := mgr.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		return httpresponse.Error(w, httpErr(err))
	}
	return httpresponse.JSON(w, http.StatusCreated, httprequest.Indent(r), obj)
}

func sessionCancel(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	id := r.PathValue("id")
	if err := mgr.Cancel(r.Context(), id); err != nil {
		return httpresponse.Error(w, httpErr(err))
	}
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), schema.CancelResponse{
		Id:  id,
		Ack: true,
	})
}

func chunkPut(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return httpresponse.Error(w, httpresponse.ErrBadRequest.Withf("invalid chunk index %q", r.PathValue("index")))
	}

	// Reject a declared length which cannot match any chunk
	if r.ContentLength > mgr.ChunkSize() {
		return httpresponse.Error(w, httpresponse.ErrBadRequest.Withf("chunk of %d bytes exceeds chunk size of %d bytes", r.ContentLength, mgr.ChunkSize()))
	}

	response, err := mgr.PutChunk(r.Context(), r.PathValue("id"), index, r.Body)
	if err != nil {
		return httpresponse.Error(w, httpErr(err))
	}
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), response)
}
