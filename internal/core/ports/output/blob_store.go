package ports

import (
	"context"
	"fmt"
	"time"
)

type PresignMethod string

const (
	PresignGet    PresignMethod = "get"
	PresignPut    PresignMethod = "put"
	PresignDelete PresignMethod = "delete"
)

// PresignOptions override response headers on a presigned GET.
type PresignOptions struct {
	ContentType        string
	ContentDisposition string
}

type PresignOption func(*PresignOptions)

// WithInline asks the browser to display the object in place under filename.
func WithInline(filename, contentType string) PresignOption {
	return func(o *PresignOptions) {
		o.ContentDisposition = fmt.Sprintf("inline; filename=%q", filename)
		o.ContentType = contentType
	}
}

func ApplyPresignOptions(opts ...PresignOption) PresignOptions {
	var o PresignOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// BlobStore holds record assets and rendered artifacts under
// tenant_id/specification_id/ prefixes.
type BlobStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	// Get returns domain.ErrBlobNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	List(ctx context.Context, prefix string) ([]string, error)
	// DeletePrefix removes every object below prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// PresignURL options apply to PresignGet only.
	PresignURL(ctx context.Context, method PresignMethod, key string, ttl time.Duration, opts ...PresignOption) (string, error)
}
