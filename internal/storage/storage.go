// Package storage provides the object storage that snapshots are shipped
// to: a local directory or an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// Backend types accepted by Open.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// ObjectStorage is where snapshot files are shipped to and fetched from.
type ObjectStorage interface {
	// UploadMultipart stores the local file at localPath as objectPath and
	// returns the ETag of the stored object. Backends that support it split
	// large files into parts.
	UploadMultipart(ctx context.Context, localPath, objectPath string) (string, error)

	// Download copies objectPath to the local file at localPath.
	Download(ctx context.Context, objectPath, localPath string) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// ListObjects returns all object paths under the given prefix in
	// lexical order.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// Options selects and configures a backend.
type Options struct {
	Type string

	// Path is the base directory of the local backend.
	Path string

	// Bucket and S3 configure the s3 backend.
	Bucket string
	S3     S3Config
}

// Open creates the backend described by opts.
func Open(ctx context.Context, opts Options) (ObjectStorage, error) {
	switch opts.Type {
	case TypeLocal, "":
		return NewLocalStorage(opts.Path)
	case TypeS3:
		if opts.Bucket == "" {
			return nil, fmt.Errorf("storage: s3 bucket is required")
		}
		return NewS3Storage(ctx, opts.Bucket, opts.S3)
	default:
		return nil, fmt.Errorf("storage: unsupported type %q", opts.Type)
	}
}
