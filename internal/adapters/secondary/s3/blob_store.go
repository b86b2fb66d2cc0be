// Package s3 implements the blob store on Amazon S3.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"spec-registry-service/internal/core/domain"
	output "spec-registry-service/internal/core/ports/output"
)

// deleteBatch is the DeleteObjects limit.
const deleteBatch = 1000

// API is the subset of the S3 client used here.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Presigner is implemented by *s3.PresignClient.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignDeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type BlobStore struct {
	api     API
	presign Presigner
	bucket  string
}

func NewBlobStore(api API, presign Presigner, bucket string) *BlobStore {
	return &BlobStore{api: api, presign: presign, bucket: bucket}
}

// New builds a BlobStore from a configured client.
func New(client *s3.Client, bucket string) *BlobStore {
	return NewBlobStore(client, s3.NewPresignClient(client), bucket)
}

func (b *BlobStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := b.api.PutObject(ctx, in); err != nil {
		return blobError("put "+key, err)
	}
	return nil
}

func (b *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, blobError("get "+key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, blobError("read "+key, err)
	}
	return body, nil
}

func (b *BlobStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := b.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(b.bucket, srcKey)),
	})
	if err != nil {
		return blobError("copy "+srcKey, err)
	}
	return nil
}

// copySource URL-encodes each path segment of bucket/key.
func copySource(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return bucket + "/" + strings.Join(parts, "/")
}

func (b *BlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	pages := s3.NewListObjectsV2Paginator(b.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, blobError("list "+prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (b *BlobStore) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("%w: refusing to delete an empty prefix", domain.ErrValidation)
	}
	keys, err := b.List(ctx, prefix)
	if err != nil {
		return err
	}

	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := b.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return blobError("delete "+prefix, err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("%w: delete %s: %d objects failed, first %s: %s",
				domain.ErrTransientBlob, prefix, len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

func (b *BlobStore) PresignURL(ctx context.Context, method output.PresignMethod, key string, ttl time.Duration, opts ...output.PresignOption) (string, error) {
	expires := s3.WithPresignExpires(ttl)
	bucket, k := aws.String(b.bucket), aws.String(key)

	var (
		req *v4.PresignedHTTPRequest
		err error
	)
	switch method {
	case output.PresignGet:
		in := &s3.GetObjectInput{Bucket: bucket, Key: k}
		o := output.ApplyPresignOptions(opts...)
		if o.ContentDisposition != "" {
			in.ResponseContentDisposition = aws.String(o.ContentDisposition)
		}
		if o.ContentType != "" {
			in.ResponseContentType = aws.String(o.ContentType)
		}
		req, err = b.presign.PresignGetObject(ctx, in, expires)
	case output.PresignPut:
		req, err = b.presign.PresignPutObject(ctx, &s3.PutObjectInput{Bucket: bucket, Key: k}, expires)
	case output.PresignDelete:
		req, err = b.presign.PresignDeleteObject(ctx, &s3.DeleteObjectInput{Bucket: bucket, Key: k}, expires)
	default:
		return "", fmt.Errorf("%w: unsupported presign method %q", domain.ErrValidation, method)
	}
	if err != nil {
		return "", fmt.Errorf("presign %s %s: %w", method, key, err)
	}
	return req.URL, nil
}

func blobError(op string, err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%s: %w", op, domain.ErrBlobNotFound)
	}
	// CopyObject reports a missing source as a generic API error.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return fmt.Errorf("%s: %w", op, domain.ErrBlobNotFound)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrTransientBlob, op, err)
}

var _ output.BlobStore = (*BlobStore)(nil)
