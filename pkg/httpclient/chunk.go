package httpclient

import (
	"io"
	"net/http"

	// Packages
	client "github.com/mutablelogic/go-client"
	types "github.com/mutablelogic/go-server/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// chunkPayload is the binary body of a chunk PUT. It counts the bytes read
// so a short body can be reported.
type chunkPayload struct {
	io.Reader
	n int64
}

var _ client.Payload = (*chunkPayload)(nil)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newChunkPayload(r io.Reader) *chunkPayload {
	return &chunkPayload{Reader: r}
}

///////////////////////////////////////////////////////////////////////////////
// INTERFACE IMPLEMENTATION

func (*chunkPayload) Method() string {
	return http.MethodPut
}

func (*chunkPayload) Accept() string {
	return types.ContentTypeJSON
}

func (*chunkPayload) Type() string {
	return types.ContentTypeBinary
}

func (p *chunkPayload) Read(b []byte) (int, error) {
	n, err := p.Reader.Read(b)
	p.n += int64(n)
	return n, err
}
