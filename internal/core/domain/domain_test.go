package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spec-registry-service/internal/core/codec"
)

func TestParseID(t *testing.T) {
	id, err := ParseID("2E6C0F79-5C4B-4D7E-9B0B-0F2C8C1A9D11")
	require.NoError(t, err)
	assert.Equal(t, "2e6c0f79-5c4b-4d7e-9b0b-0f2c8c1a9d11", id)

	for _, bad := range []string{
		"",
		"not-a-uuid",
		"2e6c0f795c4b4d7e9b0b0f2c8c1a9d11",
		"{2e6c0f79-5c4b-4d7e-9b0b-0f2c8c1a9d11}",
		"urn:uuid:2e6c0f79-5c4b-4d7e-9b0b-0f2c8c1a9d11",
	} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrInvalidSpecificationID, bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestParseGroupID(t *testing.T) {
	id, err := ParseGroupID(NoGroup)
	require.NoError(t, err)
	assert.Equal(t, NoGroup, id)

	_, err = ParseGroupID("no_group")
	assert.ErrorIs(t, err, ErrInvalidGroupID)
}

func TestValidateTenantID(t *testing.T) {
	assert.NoError(t, ValidateTenantID("T1"))
	assert.ErrorIs(t, ValidateTenantID(""), ErrMissingTenantID)
	assert.ErrorIs(t, ValidateTenantID("a#b"), ErrInvalidTenantID)
	assert.ErrorIs(t, ValidateTenantID("a/b"), ErrInvalidTenantID)
}

func TestValidateObjectKey(t *testing.T) {
	for _, ok := range []string{"sketch.png", "care-label_v2.pdf", "A1"} {
		assert.NoError(t, ValidateObjectKey(ok), ok)
	}
	for _, bad := range []string{"", "../x", "a/b", "a..b", "sp ace", "é.png"} {
		assert.ErrorIs(t, ValidateObjectKey(bad), ErrInvalidObjectKey, bad)
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "2026-07-01T03:34:56+00:00", FormatTimestamp(mustTime(t)))
}

func TestNewArtifactKey(t *testing.T) {
	a := NewArtifactKey("T1", "s", ".xlsx")
	b := NewArtifactKey("T1", "s", ".xlsx")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "T1/s/artifacts/"))
	assert.True(t, strings.HasSuffix(a, ".xlsx"))
}

func TestSpecification_ItemRoundTrip(t *testing.T) {
	spec := &Specification{
		TenantID:        "T1",
		SpecificationID: NewID(),
		BrandName:       "Acme",
		ProductName:     "Tee",
		ProductCode:     "T-1",
		Type:            "T-SHIRT",
		Status:          "APPROVED",
		GroupID:         NoGroup,
		CreatedBy:       &UserRef{UserID: "u1", UserName: "Ann"},
		CreatedAt:       "2026-01-01T00:00:00+00:00",
		UpdatedAt:       "2026-01-02T00:00:00+00:00",
		Artifact:        &ArtifactPointer{ObjectKey: "T1/x/artifacts/a.xlsx", UpdatedAt: "2026-01-02T00:00:00+00:00"},
		Attributes: codec.Map{
			"fit":      codec.Map{"chest": codec.Int(51)},
			"progress": codec.List{codec.String("sampling"), codec.Bool(false)},
		},
	}

	item := spec.ToItem()
	assert.Equal(t, codec.S("T1#APPROVED"), item[AttrTenantStatus])

	got, err := SpecificationFromItem(item)
	require.NoError(t, err)
	assert.Equal(t, spec, got)
}

func TestSpecificationFromItem_Defaults(t *testing.T) {
	got, err := SpecificationFromItem(codec.Item{
		AttrTenantID:        codec.S("T1"),
		AttrSpecificationID: codec.S("s"),
		AttrArtifact:        codec.NULL(),
	})
	require.NoError(t, err)
	assert.Equal(t, NoGroup, got.GroupID)
	assert.Nil(t, got.Artifact)
	assert.Empty(t, got.Attributes)
}

func TestSpecification_TenantStatusFollowsStatus(t *testing.T) {
	spec := &Specification{TenantID: "T", SpecificationID: "s", Status: StatusDraft}
	assert.Equal(t, codec.String("T#DRAFT"), spec.Fields()[AttrTenantStatus])

	// A stale stored value is never carried forward.
	spec.Attributes = codec.Map{AttrTenantStatus: codec.String("T#OLD")}
	spec.Status = "APPROVED"
	assert.Equal(t, codec.String("T#APPROVED"), spec.Fields()[AttrTenantStatus])
}

func TestGroup_ItemRoundTrip(t *testing.T) {
	g := &Group{TenantID: "T1", GroupID: NewID(), Name: "SS26", UpdatedAt: "2026-01-01T00:00:00+00:00"}
	got, err := GroupFromItem(g.ToItem())
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestParseChangeEvent(t *testing.T) {
	id := NewID()

	ev, err := ParseChangeEvent([]byte(`{"specification_id":"`+id+`","tenant_id":"T1"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, ChangeEvent{SpecificationID: id, TenantID: "T1"}, ev)

	ev, err = ParseChangeEvent([]byte(`{"specification_id":"`+id+`","tenant_status":"T1#DRAFT"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "T1", ev.TenantID)

	ev, err = ParseChangeEvent(nil, map[string]string{EventAttrSpecificationID: id, EventAttrTenantID: "T2"})
	require.NoError(t, err)
	assert.Equal(t, ChangeEvent{SpecificationID: id, TenantID: "T2"}, ev)

	for _, body := range []string{`nope`, `{"tenant_id":"T1"}`, `{"specification_id":"x","tenant_id":"T1"}`, `{"specification_id":"` + id + `"}`} {
		_, err := ParseChangeEvent([]byte(body), nil)
		assert.ErrorIs(t, err, ErrInvalidEvent, body)
	}
}

func TestChangeEvent_Body(t *testing.T) {
	ev := ChangeEvent{SpecificationID: "s", TenantID: "t"}
	body, err := ev.Body()
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, ev.Attributes(), decoded)
}

func mustTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2026-07-01T12:34:56+09:00")
	require.NoError(t, err)
	return ts
}
