package ports

import (
	"context"
	"strings"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
	"spec-registry-service/internal/core/update"
)

// IndexSchema describes a secondary index: equality on PartitionAttr, optional
// prefix match on SortAttr.
type IndexSchema struct {
	Name          string
	PartitionAttr string
	SortAttr      string
}

// TableSchema describes one item table. Items are keyed by
// (tenant_id, IDAttr).
type TableSchema struct {
	Name    string
	IDAttr  string
	Indexes []IndexSchema
}

func (s TableSchema) Index(name string) (IndexSchema, bool) {
	for _, idx := range s.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexSchema{}, false
}

// SpecificationsSchema keys specifications by (tenant_id, specification_id),
// with a tenant index and a (group_id, tenant_status) index.
func SpecificationsSchema(name string) TableSchema {
	return TableSchema{
		Name:   name,
		IDAttr: domain.AttrSpecificationID,
		Indexes: []IndexSchema{
			{Name: domain.IndexTenant, PartitionAttr: domain.AttrTenantID},
			{Name: domain.IndexGroup, PartitionAttr: domain.AttrGroupID, SortAttr: domain.AttrTenantStatus},
		},
	}
}

func GroupsSchema(name string) TableSchema {
	return TableSchema{
		Name:   name,
		IDAttr: domain.AttrGroupKey,
		Indexes: []IndexSchema{
			{Name: domain.IndexTenant, PartitionAttr: domain.AttrTenantID},
		},
	}
}

// Query selects items through a secondary index. SortEquals, when set,
// matches the sort attribute exactly; otherwise SortPrefix matches by prefix
// and an empty prefix matches everything.
type Query struct {
	Index          string
	PartitionValue string
	SortEquals     string
	SortPrefix     string
}

// MatchSort reports whether a sort attribute value satisfies the query.
func (q Query) MatchSort(v string) bool {
	if q.SortEquals != "" {
		return v == q.SortEquals
	}
	return strings.HasPrefix(v, q.SortPrefix)
}

// Table is the record store contract. Every call is atomic for the single
// item it addresses; nothing spans items.
type Table interface {
	// Get returns domain.ErrNotFound when the item is absent.
	Get(ctx context.Context, key domain.Key) (codec.Item, error)
	// Put creates an item. It fails with domain.ErrConditionFailed if the key exists.
	Put(ctx context.Context, item codec.Item) error
	// Update applies op in one write, failing with domain.ErrConditionFailed
	// when op.Condition does not hold.
	Update(ctx context.Context, key domain.Key, op update.Op) error
	// Delete removes an item. Deleting an absent item is not an error.
	Delete(ctx context.Context, key domain.Key) error
	Query(ctx context.Context, q Query) ([]codec.Item, error)
}
