package update

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 999, time.FixedZone("JST", 9*3600))

func newTestBuilder() *Builder {
	return NewSpecificationBuilder(WithClock(func() time.Time { return fixedNow }))
}

func TestBuildPartialUpdate_StatusFansOut(t *testing.T) {
	op, err := newTestBuilder().BuildFromJSON([]byte(`{"status": "APPROVED"}`), "T")
	require.NoError(t, err)

	assert.Equal(t, []string{"status", "tenant_status", "updated_at"}, op.Names())

	status, _ := op.Get(domain.AttrStatus)
	assert.Equal(t, codec.S("APPROVED"), status)
	ts, _ := op.Get(domain.AttrTenantStatus)
	assert.Equal(t, codec.S("T#APPROVED"), ts)
	updated, _ := op.Get(domain.AttrUpdatedAt)
	assert.Equal(t, codec.S("2026-03-03T20:06:07+00:00"), updated)
	assert.Equal(t, ItemExists, op.Condition)
}

func TestBuildPartialUpdate_UnknownFieldsOnly(t *testing.T) {
	op, err := newTestBuilder().BuildFromJSON([]byte(`{"owner": "x", "tenant_status": "evil#X", "specification_id": "y"}`), "T")
	require.NoError(t, err)
	assert.Equal(t, []string{"updated_at"}, op.Names())
}

func TestBuildPartialUpdate_EmptyPayload(t *testing.T) {
	op, err := newTestBuilder().BuildPartialUpdate(codec.Map{}, "T")
	require.NoError(t, err)
	assert.Equal(t, []string{"updated_at"}, op.Names())
}

func TestBuildPartialUpdate_OnlyPresentFields(t *testing.T) {
	op, err := newTestBuilder().BuildFromJSON([]byte(`{
		"brand_name": "Acme",
		"fit": {"chest_width": {"s": 48, "m": 51.5}},
		"oem_points": [{"note": "double stitch", "qty": 2}]
	}`), "T")
	require.NoError(t, err)

	assert.Equal(t, []string{"brand_name", "fit", "oem_points", "updated_at"}, op.Names())

	fit, ok := op.Get("fit")
	require.True(t, ok)
	assert.Equal(t, codec.N("48"), fit.M["chest_width"].M["s"])
	assert.Equal(t, codec.N("51.5"), fit.M["chest_width"].M["m"])
}

func TestBuildPartialUpdate_NullStatusIgnored(t *testing.T) {
	op, err := newTestBuilder().BuildFromJSON([]byte(`{"status": null}`), "T")
	require.NoError(t, err)
	assert.Equal(t, []string{"updated_at"}, op.Names())
}

func TestBuildPartialUpdate_InvalidStatus(t *testing.T) {
	for _, body := range []string{`{"status": 3}`, `{"status": ""}`, `{"status": "A#B"}`} {
		_, err := newTestBuilder().BuildFromJSON([]byte(body), "T")
		assert.ErrorIs(t, err, domain.ErrValidation, body)
	}
}

func TestBuildPartialUpdate_TypedFields(t *testing.T) {
	_, err := newTestBuilder().BuildFromJSON([]byte(`{"brand_name": 12}`), "T")
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = newTestBuilder().BuildFromJSON([]byte(`{"group_id": "not-a-uuid"}`), "T")
	assert.ErrorIs(t, err, domain.ErrValidation)

	op, err := newTestBuilder().BuildFromJSON([]byte(`{"group_id": "NO_GROUP"}`), "T")
	require.NoError(t, err)
	v, _ := op.Get(domain.AttrGroupID)
	assert.Equal(t, codec.S(domain.NoGroup), v)
}

func TestBuildFromJSON_MalformedFailsFast(t *testing.T) {
	for _, body := range []string{`not json`, `[1,2]`, `"status"`} {
		_, err := newTestBuilder().BuildFromJSON([]byte(body), "T")
		assert.ErrorIs(t, err, domain.ErrInvalidPayload, body)
		assert.ErrorIs(t, err, codec.ErrMalformedPayload, body)
	}
}

func TestExpression_UsesPlaceholders(t *testing.T) {
	op, err := newTestBuilder().BuildFromJSON([]byte(`{"type": "T-SHIRT", "status": "DRAFT"}`), "T")
	require.NoError(t, err)

	expr, names, values := op.Expression()
	assert.Equal(t, "SET #n0 = :v0, #n1 = :v1, #n2 = :v2, #n3 = :v3", expr)
	assert.Equal(t, map[string]string{
		"#n0": "type", "#n1": "status", "#n2": "tenant_status", "#n3": "updated_at",
	}, names)
	assert.Equal(t, codec.S("T#DRAFT"), values[":v2"])
	assert.NotContains(t, expr, "status")
}

func TestApply(t *testing.T) {
	item := codec.Item{"brand_name": codec.S("Old"), "product_name": codec.S("Tee")}
	op, err := newTestBuilder().BuildFromJSON([]byte(`{"brand_name": "New"}`), "T")
	require.NoError(t, err)

	out := op.Apply(item)
	assert.Equal(t, codec.S("New"), out["brand_name"])
	assert.Equal(t, codec.S("Tee"), out["product_name"])
	assert.Equal(t, codec.S("Old"), item["brand_name"], "input must not be mutated")
}

func TestBuildPartialUpdate_RepeatedCyclesKeepDigits(t *testing.T) {
	b := newTestBuilder()
	item := codec.Item{"fit": codec.M(map[string]codec.AttributeValue{"w": codec.N("16.1")})}

	for i := 0; i < 20; i++ {
		m, err := codec.Decode(item)
		require.NoError(t, err)
		op, err := b.BuildPartialUpdate(m, "T")
		require.NoError(t, err)
		item = op.Apply(item)
	}
	assert.Equal(t, codec.N("16.1"), item["fit"].M["w"])
}

func TestSetArtifact(t *testing.T) {
	op := SetArtifact(domain.ArtifactPointer{ObjectKey: "T/s/artifacts/a.xlsx", UpdatedAt: "2026-01-01T00:00:00+00:00"})
	assert.Equal(t, []string{"artifact"}, op.Names())
	v, _ := op.Get("artifact")
	assert.Equal(t, codec.S("T/s/artifacts/a.xlsx"), v.M["object_key"])
}

func TestGroupBuilder(t *testing.T) {
	b := NewGroupBuilder(WithClock(func() time.Time { return fixedNow }))
	op, err := b.BuildFromJSON([]byte(`{"specification_group_name": "SS26", "status": "X"}`), "T")
	require.NoError(t, err)
	assert.Equal(t, []string{"specification_group_name", "updated_at"}, op.Names())
}
