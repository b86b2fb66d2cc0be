package xlsx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spec-registry-service/internal/core/domain"
	output "spec-registry-service/internal/core/ports/output"
)

// BlobTemplates loads one template per product type from the blob store:
// prefix + lower(type) + ".xlsx", falling back to a default key.
type BlobTemplates struct {
	blobs    output.BlobStore
	prefix   string
	fallback string
}

func NewBlobTemplates(blobs output.BlobStore, prefix, fallback string) *BlobTemplates {
	return &BlobTemplates{blobs: blobs, prefix: prefix, fallback: fallback}
}

// KeyFor returns the template key tried first for productType.
func (t *BlobTemplates) KeyFor(productType string) string {
	return t.prefix + strings.ToLower(strings.TrimSpace(productType)) + ".xlsx"
}

func (t *BlobTemplates) Template(ctx context.Context, productType string) ([]byte, error) {
	var keys []string
	if strings.TrimSpace(productType) != "" {
		keys = append(keys, t.KeyFor(productType))
	}
	if t.fallback != "" {
		keys = append(keys, t.fallback)
	}

	for _, key := range keys {
		body, err := t.blobs.Get(ctx, key)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, domain.ErrBlobNotFound) {
			return nil, fmt.Errorf("load template %s: %w", key, err)
		}
	}
	return nil, fmt.Errorf("%w: product type %q", domain.ErrTemplateNotFound, productType)
}

var _ output.TemplateSource = (*BlobTemplates)(nil)
