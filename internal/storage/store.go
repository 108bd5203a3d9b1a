// Package storage moves workbooks and CSV files between the local work
// directory and an object store.
package storage

import "context"

// ObjectStore is the blob collaborator of an extraction job.
type ObjectStore interface {
	// EnsureBucket creates bucket if it does not exist yet.
	EnsureBucket(ctx context.Context, bucket string) error

	// Download writes the object at bucket/key to localPath.
	Download(ctx context.Context, bucket, key, localPath string) error

	// Upload stores localPath at bucket/key, replacing any existing object,
	// and returns the object's URL.
	Upload(ctx context.Context, localPath, bucket, key string) (string, error)
}
