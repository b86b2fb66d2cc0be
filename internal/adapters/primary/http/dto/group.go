package dto

import "spec-registry-service/internal/core/domain"

type CreateGroupRequest struct {
	Name string `json:"specification_group_name" binding:"required,max=200"`
}

type GroupResponse struct {
	ID        string `json:"specification_group_id"`
	Name      string `json:"specification_group_name"`
	UpdatedAt string `json:"updated_at"`
}

type ListGroupsResponse struct {
	Items []GroupResponse `json:"items"`
	Total int             `json:"total"`
}

func ToGroupResponse(g *domain.Group) GroupResponse {
	return GroupResponse{ID: g.GroupID, Name: g.Name, UpdatedAt: g.UpdatedAt}
}

func ToListGroupsResponse(groups []*domain.Group) ListGroupsResponse {
	items := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		items = append(items, ToGroupResponse(g))
	}
	return ListGroupsResponse{Items: items, Total: len(items)}
}
