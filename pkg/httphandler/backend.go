package httphandler

import (
	"net/http"

	// Packages
	manager "github.com/mutablelogic/go-chunkup/pkg/manager"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi"
)

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: <prefix>
// GET returns the storage backend and the limits applied to new sessions.
func BackendHandler(mgr *manager.Manager) httprequest.PathItem {
	return httprequest.NewPathItem("Service", "Storage backend and upload limits", "service").
		Get(func(w http.ResponseWriter, r *http.Request) {
			_ = httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), mgr.Info())
		}, "Get service limits", openapi.WithDescription("Get the storage backend, chunk size and upload limits"))
}
