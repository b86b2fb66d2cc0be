// Package memory holds in-process implementations of the output ports. They
// back local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
	output "spec-registry-service/internal/core/ports/output"
	"spec-registry-service/internal/core/update"
)

// Table is a thread-safe item table.
type Table struct {
	mu     sync.RWMutex
	schema output.TableSchema
	items  map[domain.Key]codec.Item
}

func NewTable(schema output.TableSchema) *Table {
	return &Table{schema: schema, items: make(map[domain.Key]codec.Item)}
}

func (t *Table) key(item codec.Item) domain.Key {
	return domain.Key{
		TenantID: item.StringAttr(domain.AttrTenantID),
		ID:       item.StringAttr(t.schema.IDAttr),
	}
}

func (t *Table) Get(_ context.Context, key domain.Key) (codec.Item, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	item, ok := t.items[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return item.Clone(), nil
}

func (t *Table) Put(_ context.Context, item codec.Item) error {
	key := t.key(item)
	if key.TenantID == "" || key.ID == "" {
		return domain.ErrInvalidPayload
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return domain.ErrConditionFailed
	}
	t.items[key] = item.Clone()
	return nil
}

func (t *Table) Update(_ context.Context, key domain.Key, op update.Op) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, exists := t.items[key]
	if !exists {
		if op.Condition == update.ItemExists {
			return domain.ErrConditionFailed
		}
		current = codec.Item{
			domain.AttrTenantID: codec.S(key.TenantID),
			t.schema.IDAttr:     codec.S(key.ID),
		}
	}
	t.items[key] = op.Apply(current)
	return nil
}

func (t *Table) Delete(_ context.Context, key domain.Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.items, key)
	return nil
}

// Query scans every item. Results are ordered by key for stable output.
func (t *Table) Query(_ context.Context, q output.Query) ([]codec.Item, error) {
	idx, ok := t.schema.Index(q.Index)
	if !ok {
		return nil, domain.ErrValidation
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]domain.Key, 0)
	for k, item := range t.items {
		if item.StringAttr(idx.PartitionAttr) != q.PartitionValue {
			continue
		}
		if idx.SortAttr != "" && !q.MatchSort(item.StringAttr(idx.SortAttr)) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TenantID != keys[j].TenantID {
			return keys[i].TenantID < keys[j].TenantID
		}
		return keys[i].ID < keys[j].ID
	})

	out := make([]codec.Item, len(keys))
	for i, k := range keys {
		out[i] = t.items[k].Clone()
	}
	return out, nil
}

// Len reports how many items are stored.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

var _ output.Table = (*Table)(nil)
