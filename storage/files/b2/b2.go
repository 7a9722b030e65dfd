// Package b2store keeps uploaded files in a Backblaze B2 bucket.
package b2store

import (
	"context"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

type store struct {
	bucket *b2.Bucket
}

var _ core.BlobStore = (*store)(nil) // interface compliance check

// Open authorizes against B2 and opens the configured bucket.
func Open(ctx context.Context, conf *core.Config) (core.BlobStore, error) {
	client, err := b2.NewClient(ctx, conf.Storage.B2AccountID, conf.Storage.B2ApplicationKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, conf.Storage.B2Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "opening bucket %q", conf.Storage.B2Bucket)
	}
	return &store{bucket: bucket}, nil
}

func (s *store) Put(ctx context.Context, key, contentType string, r io.Reader) (core.Blob, error) {
	obj := s.bucket.Object(key)
	w := obj.NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))

	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return core.Blob{}, errors.Wrapf(err, "writing object %q", key)
	}
	if err = w.Close(); err != nil {
		return core.Blob{}, errors.Wrapf(err, "closing object %q", key)
	}
	return core.Blob{Key: key, URL: obj.URL(), Size: n, ContentType: contentType}, nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "deleting object %q", key)
	}
	return nil
}
