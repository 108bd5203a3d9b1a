package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps buckets as directories under root. It serves local
// development and tests.
type LocalStore struct {
	root string
}

var _ ObjectStore = (*LocalStore)(nil)

// NewLocalStore creates a store rooted at root.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "tableau-datasets-store")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, wrapError(CodeConfigInvalid, false, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, wrapError(CodePermissionDenied, false, err)
	}
	return &LocalStore{root: abs}, nil
}

// Root returns the directory holding the buckets.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) EnsureBucket(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.bucketPath(bucket)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapError(CodePermissionDenied, false, err)
	}
	return nil
}

func (s *LocalStore) Download(ctx context.Context, bucket, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := copyFile(src, localPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return wrapError(CodeObjectNotFound, false, err)
		}
		return wrapError(CodeReadFailed, true, err)
	}
	return nil
}

func (s *LocalStore) Upload(ctx context.Context, localPath, bucket, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := s.objectPath(bucket, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", wrapError(CodePermissionDenied, false, err)
	}
	if err := copyFile(localPath, dst); err != nil {
		return "", wrapError(CodeWriteFailed, true, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}).String(), nil
}

func (s *LocalStore) bucketPath(bucket string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", wrapError(CodeBucketNotFound, false, fmt.Errorf("invalid bucket %q", bucket))
	}
	return filepath.Join(s.root, bucket), nil
}

// objectPath resolves bucket/key, refusing keys that leave the bucket.
func (s *LocalStore) objectPath(bucket, key string) (string, error) {
	dir, err := s.bucketPath(bucket)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", wrapError(CodeObjectNotFound, false, fmt.Errorf("object key is required"))
	}
	full := filepath.Join(dir, filepath.FromSlash(key))
	if !strings.HasPrefix(full, dir+string(os.PathSeparator)) {
		return "", wrapError(CodePermissionDenied, false, fmt.Errorf("key %q escapes bucket", key))
	}
	return full, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
