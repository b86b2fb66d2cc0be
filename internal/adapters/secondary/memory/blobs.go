package memory

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"spec-registry-service/internal/core/domain"
	output "spec-registry-service/internal/core/ports/output"
)

type object struct {
	body        []byte
	contentType string
}

// BlobStore keeps objects in a map. Presigned URLs use the memory:// scheme
// and are not fetchable.
type BlobStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]object
}

func NewBlobStore(bucket string) *BlobStore {
	return &BlobStore{bucket: bucket, objects: make(map[string]object)}
}

func (b *BlobStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = object{body: append([]byte(nil), body...), contentType: contentType}
	return nil
}

func (b *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return append([]byte(nil), obj.body...), nil
}

// ContentType returns the content type an object was stored with.
func (b *BlobStore) ContentType(key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.objects[key].contentType
}

func (b *BlobStore) Copy(_ context.Context, srcKey, dstKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	obj, ok := b.objects[srcKey]
	if !ok {
		return fmt.Errorf("copy %s: %w", srcKey, domain.ErrBlobNotFound)
	}
	b.objects[dstKey] = object{body: append([]byte(nil), obj.body...), contentType: obj.contentType}
	return nil
}

func (b *BlobStore) List(_ context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0)
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *BlobStore) DeletePrefix(_ context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			delete(b.objects, k)
		}
	}
	return nil
}

func (b *BlobStore) PresignURL(_ context.Context, method output.PresignMethod, key string, ttl time.Duration, opts ...output.PresignOption) (string, error) {
	q := url.Values{
		"method":  {string(method)},
		"expires": {ttl.String()},
	}
	if o := output.ApplyPresignOptions(opts...); method == output.PresignGet {
		if o.ContentDisposition != "" {
			q.Set("response-content-disposition", o.ContentDisposition)
		}
		if o.ContentType != "" {
			q.Set("response-content-type", o.ContentType)
		}
	}
	u := url.URL{
		Scheme:   "memory",
		Host:     b.bucket,
		Path:     "/" + key,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

var _ output.BlobStore = (*BlobStore)(nil)
