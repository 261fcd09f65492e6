// Package archive keeps an audit copy of every unified report in
// S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/user/secgate/pkg/engine"
)

type Client struct {
	mc     *minio.Client
	bucket string
	prefix string
}

func New(endpoint, accessKey, secretKey string, useSSL bool, bucket, prefix string) (*Client, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &Client{mc: mc, bucket: bucket, prefix: prefix}, nil
}

// ObjectKey is <prefix>/<yyyy>/<mm>/<dd>/<runID>.<ext>.
func ObjectKey(prefix, runID string, at time.Time, ext string) string {
	at = at.UTC()
	name := fmt.Sprintf("%s.%s", runID, strings.TrimPrefix(ext, "."))
	return path.Join(strings.Trim(prefix, "/"), at.Format("2006/01/02"), name)
}

// Upload stores data under key. Any failure is a ReportWriteError: a run
// configured to archive its report must not pass without the audit copy.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return &engine.ReportWriteError{Target: fmt.Sprintf("s3://%s/%s", c.bucket, key), Err: err}
	}
	return nil
}

// Prefix is the configured key prefix.
func (c *Client) Prefix() string { return c.prefix }
