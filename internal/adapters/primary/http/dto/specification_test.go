package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
)

func TestToSpecificationResponse(t *testing.T) {
	price, err := codec.ParseNumber("1234.25")
	require.NoError(t, err)

	spec := &domain.Specification{
		TenantID:        "acme",
		SpecificationID: "3f1c5a10-7a2b-4c3d-9e8f-0123456789ab",
		BrandName:       "North",
		ProductName:     "Parka",
		ProductCode:     "PK-01",
		Status:          domain.StatusDraft,
		GroupID:         domain.NoGroup,
		Attributes:      codec.Map{"sample": codec.Map{"price": price}},
	}

	resp := ToSpecificationResponse(spec)
	assert.NotContains(t, resp, domain.AttrTenantStatus)
	assert.Equal(t, "Parka", resp[domain.AttrProductName])

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"price":1234.25`)
}

func TestToListGroupsResponse_Empty(t *testing.T) {
	resp := ToListGroupsResponse(nil)
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"total":0}`, string(body))
}
