package dto

import (
	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
)

// SpecificationResponse is the stored record as JSON. Nested attributes keep
// their exact numeric text.
type SpecificationResponse map[string]any

func ToSpecificationResponse(s *domain.Specification) SpecificationResponse {
	out, _ := codec.ToGo(s.Fields()).(map[string]any)
	delete(out, domain.AttrTenantStatus)
	return out
}

type ListSpecificationsResponse struct {
	Items []SpecificationResponse `json:"items"`
	Total int                     `json:"total"`
}

func ToListSpecificationsResponse(specs []*domain.Specification) ListSpecificationsResponse {
	items := make([]SpecificationResponse, 0, len(specs))
	for _, s := range specs {
		items = append(items, ToSpecificationResponse(s))
	}
	return ListSpecificationsResponse{Items: items, Total: len(items)}
}

type CreatedResponse struct {
	SpecificationID string `json:"specification_id"`
}

type DownloadResponse struct {
	URL    string `json:"url,omitempty"`
	Status string `json:"status"`
}
