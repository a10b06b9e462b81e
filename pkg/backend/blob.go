package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	blob "gocloud.dev/blob"
	s3blob "gocloud.dev/blob/s3blob"
	gcerrors "gocloud.dev/gcerrors"

	// Drivers
	_ "gocloud.dev/blob/fileblob" // file:// URLs
	_ "gocloud.dev/blob/memblob"  // mem:// URLs
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type blobbackend struct {
	*opt
	bucket       *blob.Bucket
	bucketPrefix string // key prefix for bucket operations (empty for file://)
}

var _ Backend = (*blobbackend)(nil)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	chunkDir  = "chunks"
	objectDir = "objects"
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewBlobBackend creates a new blob backend using Go CDK.
// Supported URL schemes: s3://, file://, mem://
// Examples:
//   - "s3://my-bucket/uploads?region=us-east-1"
//   - "file:///path/to/directory"
//   - "mem://"
//
// For s3:// and mem:// the URL path is a key prefix within the bucket. For
// file:// the path is the root directory.
func NewBlobBackend(ctx context.Context, u string, opts ...Opt) (*blobbackend, error) {
	self := new(blobbackend)

	// Set the options
	if url, err := url.Parse(u); err != nil {
		return nil, err
	} else if opt, err := apply(url, opts...); err != nil {
		return nil, err
	} else {
		self.opt = opt
	}
	if self.url.Scheme != "file" {
		self.bucketPrefix = strings.Trim(self.url.Path, "/")
	}

	// Open the bucket
	var bucket *blob.Bucket
	var err error
	switch self.url.Scheme {
	case "s3":
		bucket, err = self.openS3(ctx)
	case "file":
		if !path.IsAbs(self.url.Path) {
			return nil, fmt.Errorf("backend dir %q must be an absolute path", self.url.Path)
		}
		openURL := &url.URL{Scheme: "file", Path: self.url.Path, RawQuery: self.url.RawQuery}
		bucket, err = blob.OpenBucket(ctx, openURL.String())
	case "mem":
		bucket, err = blob.OpenBucket(ctx, "mem://")
	default:
		return nil, fmt.Errorf("unsupported backend scheme %q", self.url.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	self.bucket = bucket

	return self, nil
}

// NewFileBackend creates a file-based backend rooted at dir, creating the
// directory if it does not exist. dir must be an absolute path.
func NewFileBackend(ctx context.Context, dir string, opts ...Opt) (*blobbackend, error) {
	if !path.IsAbs(dir) {
		return nil, fmt.Errorf("backend dir %q must be an absolute path", dir)
	}
	return NewBlobBackend(ctx, "file://"+path.Clean(dir), append([]Opt{WithCreateDir()}, opts...)...)
}

// Close the backend
func (b *blobbackend) Close() error {
	var result error
	if b.bucket != nil {
		result = errors.Join(result, b.bucket.Close())
		b.bucket = nil
	}

	// Return any errors
	return result
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// URL returns the backend URL without user credentials.
func (b *blobbackend) URL() *url.URL {
	u := *b.url
	u.User = nil
	return &u
}

// ObjectPath returns the logical path of an assembled object.
func ObjectPath(id string) string {
	return "/" + objectDir + "/" + id
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (b *blobbackend) openS3(ctx context.Context) (*blob.Bucket, error) {
	client, err := b.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, client, b.url.Host, nil)
}

// storageKey returns the blob storage key for a logical path by prepending
// the bucket prefix (for s3/mem).
func (b *blobbackend) storageKey(p string) string {
	sk := strings.TrimPrefix(path.Clean("/"+p), "/")
	if b.bucketPrefix != "" {
		if sk == "" {
			return b.bucketPrefix + "/"
		}
		return b.bucketPrefix + "/" + sk
	}
	return sk
}

// pathFromStorageKey converts a blob storage key back to a logical path
// by stripping the bucket prefix.
func (b *blobbackend) pathFromStorageKey(sk string) string {
	if b.bucketPrefix != "" {
		sk = strings.TrimPrefix(sk, b.bucketPrefix+"/")
	}
	return path.Clean("/" + sk)
}

func chunkPrefix(session string) string {
	return "/" + chunkDir + "/" + session + "/"
}

func chunkPath(session string, index int) string {
	return fmt.Sprintf("%s%06d", chunkPrefix(session), index)
}

func attrsToObject(objPath string, attrs *blob.Attributes) *schema.Object {
	obj := &schema.Object{
		Path:        objPath,
		Size:        attrs.Size,
		ModTime:     attrs.ModTime,
		ContentType: attrs.ContentType,
		ETag:        attrs.ETag,
	}
	if len(attrs.Metadata) > 0 {
		obj.Meta = attrs.Metadata
	}
	return obj
}

// blobErr wraps a go-cloud blob error with the appropriate error. Missing
// keys map onto schema.ErrNotFound.
func blobErr(err error, key string) error {
	if err == nil {
		return nil
	}
	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return fmt.Errorf("%w: %q", schema.ErrNotFound, key)
	case gcerrors.PermissionDenied:
		return httpresponse.ErrForbidden.Withf("permission denied for %q", key)
	case gcerrors.InvalidArgument:
		return httpresponse.ErrBadRequest.Withf("invalid argument for %q: %v", key, err)
	case gcerrors.FailedPrecondition:
		return httpresponse.ErrConflict.Withf("precondition failed for %q: %v", key, err)
	case gcerrors.Canceled, gcerrors.DeadlineExceeded:
		return err
	default:
		return httpresponse.ErrInternalError.Withf("blob operation failed: %v", err)
	}
}
