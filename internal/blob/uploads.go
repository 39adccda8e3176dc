// Package blob stores raw uploaded transcript files (docx, txt) in an
// S3-compatible object store. Only metadata lives in the collection
// documents; the source files live here.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Uploads struct {
	client *minio.Client
	bucket string
}

// NewUploads connects to the object store and makes sure the bucket exists.
func NewUploads(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Uploads, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Uploads{client: client, bucket: bucket}, nil
}

// Key builds the object key for one transcript's source file.
func Key(projectID, transcriptID, filename string) string {
	return fmt.Sprintf("projects/%s/transcripts/%s/%s", projectID, transcriptID, filename)
}

func (u *Uploads) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("store upload %s: %w", key, err)
	}
	return nil
}

func (u *Uploads) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := u.client.GetObject(ctx, u.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", key, err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", key, err)
	}
	return body, nil
}

func (u *Uploads) Remove(ctx context.Context, key string) error {
	if err := u.client.RemoveObject(ctx, u.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove upload %s: %w", key, err)
	}
	return nil
}
