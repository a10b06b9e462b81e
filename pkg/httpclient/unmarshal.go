package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	client "github.com/mutablelogic/go-client"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// getObjectResponse holds the object decoded from the X-Object-Meta header of
// a HEAD request.
type getObjectResponse struct {
	Object *schema.Object
}

// readObjectUnmarshaler streams the response body to fn in 32 KiB pieces and
// captures the object metadata from the X-Object-Meta response header.
type readObjectUnmarshaler struct {
	obj *schema.Object
	fn  func([]byte) error
}

var _ client.Unmarshaler = (*getObjectResponse)(nil)
var _ client.Unmarshaler = (*readObjectUnmarshaler)(nil)

///////////////////////////////////////////////////////////////////////////////
// INTERFACE IMPLEMENTATION

func (r *getObjectResponse) Unmarshal(header http.Header, _ io.Reader) error {
	obj, err := objectFromHeader(header)
	if err != nil {
		return err
	}
	r.Object = obj
	return nil
}

func (r *readObjectUnmarshaler) Unmarshal(header http.Header, reader io.Reader) error {
	obj, err := objectFromHeader(header)
	if err != nil {
		return err
	} else if obj == nil {
		return fmt.Errorf("ReadObject: missing %s header in response", schema.ObjectMetaHeader)
	}
	r.obj = obj

	// Metadata only
	if r.fn == nil {
		return nil
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if err := r.fn(buf[:n]); err != nil {
				return err
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// objectFromHeader returns nil when the header is absent.
func objectFromHeader(header http.Header) (*schema.Object, error) {
	metaJSON := header.Get(schema.ObjectMetaHeader)
	if metaJSON == "" {
		return nil, nil
	}
	var obj schema.Object
	if err := json.Unmarshal([]byte(metaJSON), &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}
