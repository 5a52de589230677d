// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gcs reads test results out of Cloud Storage buckets.
package gcs

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"go.chromium.org/luci/common/errors"
	"google.golang.org/api/iterator"
)

// Client is the part of a bucket fireci reads: object listings and
// object contents. The indirection keeps result aggregation testable
// without a live bucket.
type Client interface {
	// ListObjects returns the names of all objects under prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	// ReadObject returns the full contents of the named object.
	ReadObject(ctx context.Context, name string) ([]byte, error)
	// Close releases the underlying connection.
	Close() error
}

type bucketClient struct {
	client *storage.Client
	bucket string
}

// NewClient returns a Client for one bucket, authenticating with
// application default credentials.
func NewClient(ctx context.Context, bucket string) (Client, error) {
	c, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "create storage client").Err()
	}
	return &bucketClient{client: c, bucket: bucket}, nil
}

func (b *bucketClient) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Annotate(err, "list gs://%s/%s", b.bucket, prefix).Err()
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

func (b *bucketClient) ReadObject(ctx context.Context, name string) ([]byte, error) {
	r, err := b.client.Bucket(b.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "read gs://%s/%s", b.bucket, name).Err()
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Annotate(err, "read gs://%s/%s", b.bucket, name).Err()
	}
	return data, nil
}

func (b *bucketClient) Close() error {
	return b.client.Close()
}
