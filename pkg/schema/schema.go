package schema

import "time"

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	SchemaName = "chunkup"

	// DefaultChunkSize keeps each chunk request under typical proxy and
	// ingress body-size limits.
	DefaultChunkSize int64 = 5 * 1024 * 1024

	// DefaultMaxSize is the largest payload accepted by Init.
	DefaultMaxSize int64 = 500 * 1024 * 1024

	// DefaultIdleTimeout is how long a collecting session may go without a
	// chunk before it is reclaimed.
	DefaultIdleTimeout = 2 * time.Hour

	// DefaultRetention is how long terminal session records are kept before
	// they are purged.
	DefaultRetention = 7 * 24 * time.Hour

	// DefaultReclaimInterval is the period between reclaim passes.
	DefaultReclaimInterval = 5 * time.Minute

	// MaxListLimit is the maximum number of sessions returned by ListSessions.
	MaxListLimit = 1000
)

const (
	// HTTP headers
	ObjectMetaHeader = "X-Object-Meta"

	// Object metadata keys. S3 normalizes metadata keys to lowercase.
	AttrSession = "session"
	AttrName    = "name"
)

var (
	// DefaultExtensions are the declared filename extensions accepted by Init.
	DefaultExtensions = []string{".mp4", ".mov"}
)
