package httphandler

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	// Packages
	manager "github.com/mutablelogic/go-chunkup/pkg/manager"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi"
	types "github.com/mutablelogic/go-server/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: <prefix>/object/{id}
// GET downloads a completed upload, HEAD returns its metadata.
func ObjectHandler(mgr *manager.Manager) httprequest.PathItem {
	get := func(w http.ResponseWriter, r *http.Request) {
		_ = objectGet(w, r, mgr)
	}
	return httprequest.NewPathItem("Object", "Completed uploads", "object").
		Get(get, "Download object").
		Head(get, "Get object metadata", openapi.WithDescription("Get completed upload metadata without body"))
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// objectGet writes the headers of an object and, for GET, its content. The
// content is only opened for GET.
func objectGet(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	var body io.ReadCloser
	var obj *schema.Object
	var err error
	if id := r.PathValue("id"); r.Method == http.MethodHead {
		obj, err = mgr.GetObject(r.Context(), id)
	} else {
		body, obj, err = mgr.ReadObject(r.Context(), id)
	}
	if err != nil {
		return httpresponse.Error(w, httpErr(err))
	}
	if body != nil {
		defer body.Close()
	}

	// Conditional requests
	header := w.Header()
	setObjectHeaders(header, obj)
	if status := precondition(r.Header, obj.ETag, obj.ModTime); status != http.StatusOK {
		header.Del(types.ContentLengthHeader)
		w.WriteHeader(status)
		return nil
	}

	w.WriteHeader(http.StatusOK)
	if body == nil {
		return nil
	}
	_, err = io.Copy(w, body)
	return err
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - HEADERS

// setObjectHeaders describes the object in response headers, including the
// whole object as JSON in X-Object-Meta.
func setObjectHeaders(header http.Header, obj *schema.Object) {
	header.Set(types.ContentTypeHeader, objectContentType(obj))
	header.Set(types.ContentLengthHeader, strconv.FormatInt(obj.Size, 10))
	header.Set(types.ContentModifiedHeader, obj.ModTime.UTC().Format(http.TimeFormat))
	header.Set(types.ContentPathHeader, obj.Path)
	if obj.ETag != "" {
		header.Set(types.ContentHashHeader, obj.ETag)
	}
	if filename := objectFilename(obj); filename != "" {
		header.Set(types.ContentDispositonHeader, mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	if data, err := json.Marshal(obj); err == nil {
		header.Set(schema.ObjectMetaHeader, string(data))
	}
}

// objectContentType is the content type recorded at completion, else the
// type of the declared name's extension.
func objectContentType(obj *schema.Object) string {
	if obj.ContentType != "" && obj.ContentType != types.ContentTypeBinary {
		return obj.ContentType
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(objectFilename(obj)))); t != "" {
		return t
	}
	return types.ContentTypeBinary
}

// objectFilename is the base of the declared name, or of the storage path
// when the object has no name.
func objectFilename(obj *schema.Object) string {
	for _, name := range []string{obj.Name, obj.Path} {
		if base := path.Base(strings.ReplaceAll(name, "\\", "/")); base != "." && base != "/" {
			return base
		}
	}
	return ""
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - PRECONDITIONS

// precondition returns 412 or 304 when a conditional request header is not
// satisfied, otherwise 200. If-Match takes precedence over
// If-Unmodified-Since, and If-None-Match over If-Modified-Since.
func precondition(h http.Header, etag string, modtime time.Time) int {
	modtime = modtime.Truncate(time.Second)
	if v := h.Get("If-Match"); v != "" {
		if !etagMatch(v, etag, false) {
			return http.StatusPreconditionFailed
		}
	} else if t, err := http.ParseTime(h.Get("If-Unmodified-Since")); err == nil && modtime.After(t) {
		return http.StatusPreconditionFailed
	}
	if v := h.Get("If-None-Match"); v != "" {
		if etagMatch(v, etag, true) {
			return http.StatusNotModified
		}
	} else if t, err := http.ParseTime(h.Get("If-Modified-Since")); err == nil && !modtime.After(t) {
		return http.StatusNotModified
	}
	return http.StatusOK
}

// etagMatch reports whether etag is in the list, which is "*" or
// comma-separated entity tags. Weak tags only match when weak is true.
func etagMatch(list, etag string, weak bool) bool {
	if etag == "" {
		return false
	}
	if strings.TrimSpace(list) == "*" {
		return true
	}
	opaque := func(tag string) (string, bool) {
		tag = strings.TrimSpace(tag)
		isWeak := strings.HasPrefix(tag, "W/")
		return strings.Trim(strings.TrimPrefix(tag, "W/"), `"`), isWeak
	}
	want, wantWeak := opaque(etag)
	for _, tag := range strings.Split(list, ",") {
		got, gotWeak := opaque(tag)
		if !weak && (gotWeak || wantWeak) {
			continue
		}
		if got == want {
			return true
		}
	}
	return false
}
