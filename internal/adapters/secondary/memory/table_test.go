package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
	output "spec-registry-service/internal/core/ports/output"
	"spec-registry-service/internal/core/update"
)

func specItem(tenant, id, group, status string) codec.Item {
	return codec.Item{
		domain.AttrTenantID:        codec.S(tenant),
		domain.AttrSpecificationID: codec.S(id),
		domain.AttrGroupID:         codec.S(group),
		domain.AttrStatus:          codec.S(status),
		domain.AttrTenantStatus:    codec.S(tenant + "#" + status),
	}
}

func TestTable_PutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	tbl := NewTable(output.SpecificationsSchema("specs"))

	require.NoError(t, tbl.Put(ctx, specItem("T", "a", "G", "DRAFT")))
	err := tbl.Put(ctx, specItem("T", "a", "G", "DRAFT"))
	assert.ErrorIs(t, err, domain.ErrConditionFailed)

	// Same id under another tenant is a different key.
	require.NoError(t, tbl.Put(ctx, specItem("U", "a", "G", "DRAFT")))
	assert.Equal(t, 2, tbl.Len())
}

func TestTable_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	tbl := NewTable(output.SpecificationsSchema("specs"))
	require.NoError(t, tbl.Put(ctx, specItem("T", "a", "G", "DRAFT")))

	got, err := tbl.Get(ctx, domain.Key{TenantID: "T", ID: "a"})
	require.NoError(t, err)
	got[domain.AttrStatus] = codec.S("CHANGED")

	again, err := tbl.Get(ctx, domain.Key{TenantID: "T", ID: "a"})
	require.NoError(t, err)
	assert.Equal(t, codec.S("DRAFT"), again[domain.AttrStatus])

	_, err = tbl.Get(ctx, domain.Key{TenantID: "T", ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTable_UpdateCondition(t *testing.T) {
	ctx := context.Background()
	tbl := NewTable(output.SpecificationsSchema("specs"))
	op := update.Op{
		Set:       []update.Assignment{{Name: "brand_name", Value: codec.S("Acme")}},
		Condition: update.ItemExists,
	}

	err := tbl.Update(ctx, domain.Key{TenantID: "T", ID: "a"}, op)
	assert.ErrorIs(t, err, domain.ErrConditionFailed)
	assert.Equal(t, 0, tbl.Len())

	op.Condition = update.Always
	require.NoError(t, tbl.Update(ctx, domain.Key{TenantID: "T", ID: "a"}, op))
	got, err := tbl.Get(ctx, domain.Key{TenantID: "T", ID: "a"})
	require.NoError(t, err)
	assert.Equal(t, codec.S("Acme"), got["brand_name"])
	assert.Equal(t, codec.S("T"), got[domain.AttrTenantID])
}

func TestTable_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tbl := NewTable(output.SpecificationsSchema("specs"))
	require.NoError(t, tbl.Put(ctx, specItem("T", "a", "G", "DRAFT")))

	require.NoError(t, tbl.Delete(ctx, domain.Key{TenantID: "T", ID: "a"}))
	require.NoError(t, tbl.Delete(ctx, domain.Key{TenantID: "T", ID: "a"}))
	assert.Equal(t, 0, tbl.Len())
}

func TestTable_QueryGroupIndex(t *testing.T) {
	ctx := context.Background()
	tbl := NewTable(output.SpecificationsSchema("specs"))
	require.NoError(t, tbl.Put(ctx, specItem("T", "1", "G", "APPROVED")))
	require.NoError(t, tbl.Put(ctx, specItem("T", "2", "G", "APPROVED_LATE")))
	require.NoError(t, tbl.Put(ctx, specItem("T", "3", "G", "DRAFT")))
	require.NoError(t, tbl.Put(ctx, specItem("U", "4", "G", "APPROVED")))
	require.NoError(t, tbl.Put(ctx, specItem("T", "5", "H", "APPROVED")))

	exact, err := tbl.Query(ctx, output.Query{Index: domain.IndexGroup, PartitionValue: "G", SortEquals: "T#APPROVED"})
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "1", exact[0].StringAttr(domain.AttrSpecificationID))

	prefix, err := tbl.Query(ctx, output.Query{Index: domain.IndexGroup, PartitionValue: "G", SortPrefix: "T#"})
	require.NoError(t, err)
	assert.Len(t, prefix, 3)

	tenant, err := tbl.Query(ctx, output.Query{Index: domain.IndexTenant, PartitionValue: "U"})
	require.NoError(t, err)
	assert.Len(t, tenant, 1)

	_, err = tbl.Query(ctx, output.Query{Index: "NoSuchIndex", PartitionValue: "G"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
