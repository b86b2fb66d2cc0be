package services

import (
	"context"
	"errors"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
	"spec-registry-service/internal/core/ports/output"
)

// RecordStore adds the specification index queries on top of a Table.
type RecordStore struct {
	ports.Table
}

func NewRecordStore(table ports.Table) RecordStore {
	return RecordStore{Table: table}
}

// GetSpecification reads and decodes one record.
func (r RecordStore) GetSpecification(ctx context.Context, key domain.Key) (*domain.Specification, error) {
	item, err := r.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSpecificationNotFound
		}
		return nil, err
	}
	return domain.SpecificationFromItem(item)
}

func (r RecordStore) QueryByTenant(ctx context.Context, tenantID string) ([]codec.Item, error) {
	return r.Query(ctx, ports.Query{Index: domain.IndexTenant, PartitionValue: tenantID})
}

// QueryByGroupAndStatus matches tenant_status exactly when status is set,
// and by the "tenant#" prefix otherwise.
func (r RecordStore) QueryByGroupAndStatus(ctx context.Context, groupID, tenantID string, status domain.Status) ([]codec.Item, error) {
	q := ports.Query{Index: domain.IndexGroup, PartitionValue: groupID}
	if status != "" {
		q.SortEquals = domain.TenantStatus(tenantID, status)
	} else {
		q.SortPrefix = tenantID + "#"
	}
	return r.Query(ctx, q)
}
