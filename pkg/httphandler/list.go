package httphandler

import (
	"net/http"

	// Packages
	manager "github.com/mutablelogic/go-chunkup/pkg/manager"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi"
)

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: <prefix>/upload
// GET lists upload sessions. POST opens a new session.
func SessionListHandler(mgr *manager.Manager) httprequest.PathItem {
	return httprequest.NewPathItem("Upload sessions", "List and open upload sessions", "upload").
		Get(func(w http.ResponseWriter, r *http.Request) {
			_ = sessionList(w, r, mgr)
		}, "List sessions", openapi.WithDescription("List upload sessions, optionally filtered by state")).
		Post(func(w http.ResponseWriter, r *http.Request) {
			_ = sessionInit(w, r, mgr)
		}, "Open session", openapi.WithDescription("Open an upload session for a declared name, size and chunk count"))
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func sessionList(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	var request schema.SessionListRequest

	// Read query parameters into request struct
	if err := httprequest.Query(r.URL.Query(), &request); err != nil {
		return httpresponse.Error(w, httpresponse.ErrBadRequest.With(err.Error()))
	}

	// Get the list of sessions from the manager
	response, err := mgr.ListSessions(r.Context(), request)
	if err != nil {
		return httpresponse.Error(w, httpErr(err))
	}

	// Return the response as JSON
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), response)
}

func sessionInit(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	var request schema.InitRequest
	if err := httprequest.Read(r, &request); err != nil {
		return httpresponse.Error(w, httpresponse.ErrBadRequest.With(err.Error()))
	}

	response, err := mgr.Init(r.Context(), request)
	if err != nil {
		return httpresponse.Error(w, httpErr(err))
	}

	return httpresponse.JSON(w, http.StatusCreated, httprequest.Indent(r), response)
}
