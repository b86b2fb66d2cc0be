package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
	"spec-registry-service/internal/core/ports/output"
	"spec-registry-service/internal/core/update"
)

// SpecificationFilter narrows List. Status without GroupID filters the
// tenant's records; with GroupID it uses the group index.
type SpecificationFilter struct {
	GroupID string
	Status  domain.Status
}

type SpecificationService struct {
	store      RecordStore
	blobs      ports.BlobStore
	queue      ports.ChangeQueue
	builder    *update.Builder
	presignTTL time.Duration
	// artifactType is the media type previews are served as.
	artifactType string
	now          func() time.Time
}

type SpecificationOption func(*SpecificationService)

func WithPresignTTL(ttl time.Duration) SpecificationOption {
	return func(s *SpecificationService) {
		if ttl > 0 {
			s.presignTTL = ttl
		}
	}
}

func WithArtifactContentType(contentType string) SpecificationOption {
	return func(s *SpecificationService) { s.artifactType = contentType }
}

func WithClock(now func() time.Time) SpecificationOption {
	return func(s *SpecificationService) { s.now = now }
}

func NewSpecificationService(store RecordStore, blobs ports.BlobStore, queue ports.ChangeQueue, opts ...SpecificationOption) *SpecificationService {
	s := &SpecificationService{
		store:      store,
		blobs:      blobs,
		queue:      queue,
		presignTTL: time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.builder = update.NewSpecificationBuilder(update.WithClock(func() time.Time { return s.now() }))
	return s
}

// Create stores a new DRAFT specification. brand_name, product_name and
// product_code are required; other allow-listed fields are accepted.
func (s *SpecificationService) Create(ctx context.Context, tenantID string, user *domain.UserRef, body []byte) (*domain.Specification, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	payload, err := codec.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPayload, err)
	}
	delete(payload, domain.AttrStatus)

	op, err := s.builder.BuildPartialUpdate(payload, tenantID)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{domain.AttrBrandName, domain.AttrProductName, domain.AttrProductCode} {
		if v, ok := op.Get(name); !ok || v.S == "" {
			return nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidPayload, name)
		}
	}

	now := domain.FormatTimestamp(s.now())
	base := &domain.Specification{
		TenantID:        tenantID,
		SpecificationID: domain.NewID(),
		Status:          domain.StatusDraft,
		GroupID:         domain.NoGroup,
		CreatedBy:       user,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	item := op.Apply(base.ToItem())

	spec, err := domain.SpecificationFromItem(item)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, spec.ToItem()); err != nil {
		return nil, fmt.Errorf("put specification: %w", err)
	}
	if err := s.notify(ctx, spec.Key()); err != nil {
		return nil, err
	}
	return spec, nil
}

func (s *SpecificationService) Get(ctx context.Context, tenantID, id string) (*domain.Specification, error) {
	key, err := specificationKey(tenantID, id)
	if err != nil {
		return nil, err
	}
	spec, err := s.store.GetSpecification(ctx, key)
	if err != nil {
		logDecodeError(err, key)
		return nil, err
	}
	return spec, nil
}

func (s *SpecificationService) List(ctx context.Context, tenantID string, filter SpecificationFilter) ([]*domain.Specification, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if filter.Status != "" {
		if err := domain.ValidateStatus(string(filter.Status)); err != nil {
			return nil, err
		}
	}

	var (
		items []codec.Item
		err   error
	)
	if filter.GroupID != "" {
		groupID, perr := domain.ParseGroupID(filter.GroupID)
		if perr != nil {
			return nil, perr
		}
		items, err = s.store.QueryByGroupAndStatus(ctx, groupID, tenantID, filter.Status)
	} else {
		items, err = s.store.QueryByTenant(ctx, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("query specifications: %w", err)
	}

	specs := make([]*domain.Specification, 0, len(items))
	for _, item := range items {
		spec, err := domain.SpecificationFromItem(item)
		if err != nil {
			logDecodeError(err, domain.Key{TenantID: tenantID, ID: item.StringAttr(domain.AttrSpecificationID)})
			return nil, err
		}
		if filter.GroupID == "" && filter.Status != "" && spec.Status != filter.Status {
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Update replaces only the allow-listed attributes present in body and
// queues a re-render.
func (s *SpecificationService) Update(ctx context.Context, tenantID, id string, body []byte) error {
	key, err := specificationKey(tenantID, id)
	if err != nil {
		return err
	}
	op, err := s.builder.BuildFromJSON(body, tenantID)
	if err != nil {
		return err
	}

	if err := s.store.Update(ctx, key, op); err != nil {
		if errors.Is(err, domain.ErrConditionFailed) {
			return domain.ErrSpecificationNotFound
		}
		return fmt.Errorf("update specification: %w", err)
	}
	return s.notify(ctx, key)
}

// Duplicate copies a specification under a new ID: DRAFT again, "(Copy)"
// appended to the product name, assets copied, previous renders dropped.
func (s *SpecificationService) Duplicate(ctx context.Context, tenantID, id string, user *domain.UserRef) (*domain.Specification, error) {
	key, err := specificationKey(tenantID, id)
	if err != nil {
		return nil, err
	}
	src, err := s.store.GetSpecification(ctx, key)
	if err != nil {
		logDecodeError(err, key)
		return nil, err
	}

	dup := *src
	dup.SpecificationID = domain.NewID()
	dup.Status = domain.StatusDraft
	dup.ProductName = src.ProductName + " (Copy)"
	dup.CreatedAt = domain.FormatTimestamp(s.now())
	dup.UpdatedAt = dup.CreatedAt
	dup.CreatedBy = user
	dup.UpdatedBy = user
	dup.Artifact = nil
	dup.Attributes = src.Attributes.Clone()

	// Assets go first so a failed copy never leaves a record pointing at
	// files it does not have.
	if err := s.copyAssets(ctx, src, &dup); err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, dup.ToItem()); err != nil {
		return nil, fmt.Errorf("put duplicate: %w", err)
	}
	if err := s.notify(ctx, dup.Key()); err != nil {
		return nil, err
	}
	return &dup, nil
}

func (s *SpecificationService) copyAssets(ctx context.Context, src, dst *domain.Specification) error {
	srcPrefix := domain.RecordPrefix(src.TenantID, src.SpecificationID)
	skip := domain.ArtifactPrefix(src.TenantID, src.SpecificationID)
	dstPrefix := domain.RecordPrefix(dst.TenantID, dst.SpecificationID)

	keys, err := s.blobs.List(ctx, srcPrefix)
	if err != nil {
		return fmt.Errorf("list assets: %w", err)
	}
	for _, k := range keys {
		if strings.HasPrefix(k, skip) {
			continue
		}
		if err := s.blobs.Copy(ctx, k, dstPrefix+strings.TrimPrefix(k, srcPrefix)); err != nil {
			return fmt.Errorf("copy asset %s: %w", k, err)
		}
	}
	return nil
}

// Delete removes the record, then every asset and render below its prefix.
func (s *SpecificationService) Delete(ctx context.Context, tenantID, id string) error {
	key, err := specificationKey(tenantID, id)
	if err != nil {
		return err
	}
	if _, err := s.store.Get(ctx, key); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrSpecificationNotFound
		}
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete specification: %w", err)
	}
	if err := s.blobs.DeletePrefix(ctx, domain.RecordPrefix(tenantID, key.ID)); err != nil {
		return fmt.Errorf("delete assets: %w", err)
	}
	return nil
}

// ArtifactURL returns a presigned download URL for the latest render.
// pending is true when no render has completed yet; that is not an error.
func (s *SpecificationService) ArtifactURL(ctx context.Context, tenantID, id string) (url string, pending bool, err error) {
	return s.presignArtifact(ctx, tenantID, id, false)
}

// PreviewURL is ArtifactURL with the response marked for inline display.
func (s *SpecificationService) PreviewURL(ctx context.Context, tenantID, id string) (url string, pending bool, err error) {
	return s.presignArtifact(ctx, tenantID, id, true)
}

func (s *SpecificationService) presignArtifact(ctx context.Context, tenantID, id string, inline bool) (string, bool, error) {
	spec, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return "", false, err
	}
	if spec.Artifact == nil {
		return "", true, nil
	}
	key := spec.Artifact.ObjectKey
	var opts []ports.PresignOption
	if inline {
		opts = append(opts, ports.WithInline(path.Base(key), s.artifactType))
	}
	url, err := s.blobs.PresignURL(ctx, ports.PresignGet, key, s.presignTTL, opts...)
	if err != nil {
		return "", false, fmt.Errorf("presign artifact: %w", err)
	}
	return url, false, nil
}

// notify queues a re-render. The record write has already happened, so a
// failure here is reported for the caller to retry the request.
func (s *SpecificationService) notify(ctx context.Context, key domain.Key) error {
	ev := domain.ChangeEvent{SpecificationID: key.ID, TenantID: key.TenantID}
	body, err := ev.Body()
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := s.queue.Send(ctx, body, ev.Attributes()); err != nil {
		if errors.Is(err, domain.ErrTransientQueue) {
			return fmt.Errorf("enqueue change event: %w", err)
		}
		return fmt.Errorf("%w: enqueue change event: %w", domain.ErrTransientQueue, err)
	}
	return nil
}

func specificationKey(tenantID, id string) (domain.Key, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return domain.Key{}, err
	}
	parsed, err := domain.ParseID(id)
	if err != nil {
		return domain.Key{}, err
	}
	return domain.Key{TenantID: tenantID, ID: parsed}, nil
}

func logDecodeError(err error, key domain.Key) {
	var de *codec.DecodeError
	if errors.As(err, &de) {
		log.WithFields(log.Fields{
			"tenant_id":        key.TenantID,
			"specification_id": key.ID,
			"attribute":        de.Path,
		}).WithError(err).Error("stored record is not decodable")
	}
}
