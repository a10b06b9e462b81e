package schema

import (
	"time"

	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Chunk is one contiguous byte range of a payload.
type Chunk struct {
	Index  int   `json:"index"`
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
}

// ObjectMeta is a string key-value map for object metadata.
// Keys should be lowercase for S3 compatibility, as S3 normalizes all
// metadata keys to lowercase.
type ObjectMeta map[string]string

// Object is a finalized upload. Id is the durable identity handed to
// downstream consumers.
type Object struct {
	Id          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Path        string     `json:"path,omitempty"`
	Size        int64      `json:"size"`
	ModTime     time.Time  `json:"modtime,omitzero"`
	ContentType string     `json:"type,omitempty"`
	ETag        string     `json:"etag,omitempty"`
	Meta        ObjectMeta `json:"meta,omitempty"`
}

// AssembleRequest describes the object built from a session's chunks.
type AssembleRequest struct {
	Session     string
	ChunkCount  int
	Path        string
	ContentType string
	Meta        ObjectMeta
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (c Chunk) String() string {
	return types.Stringify(c)
}

func (o Object) String() string {
	return types.Stringify(o)
}
