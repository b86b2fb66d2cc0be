package domain

import "spec-registry-service/internal/core/codec"

const (
	AttrGroupKey  = "specification_group_id"
	AttrGroupName = "specification_group_name"
)

// GroupMutableFields is the allow-list for group updates.
var GroupMutableFields = []string{AttrGroupName}

// Group collects specifications of one tenant, e.g. a season or a collection.
type Group struct {
	TenantID  string
	GroupID   string
	Name      string
	UpdatedAt string
}

func (g *Group) Key() Key {
	return Key{TenantID: g.TenantID, ID: g.GroupID}
}

func (g *Group) ToItem() codec.Item {
	return codec.Item{
		AttrTenantID:  codec.S(g.TenantID),
		AttrGroupKey:  codec.S(g.GroupID),
		AttrGroupName: codec.S(g.Name),
		AttrUpdatedAt: codec.S(g.UpdatedAt),
	}
}

func GroupFromItem(item codec.Item) (*Group, error) {
	m, err := codec.Decode(item)
	if err != nil {
		return nil, err
	}
	return &Group{
		TenantID:  m.GetString(AttrTenantID),
		GroupID:   m.GetString(AttrGroupKey),
		Name:      m.GetString(AttrGroupName),
		UpdatedAt: m.GetString(AttrUpdatedAt),
	}, nil
}

// ParseGroupID accepts a group UUID or the NoGroup sentinel.
func ParseGroupID(s string) (string, error) {
	if s == NoGroup {
		return s, nil
	}
	id, err := ParseID(s)
	if err != nil {
		return "", ErrInvalidGroupID
	}
	return id, nil
}
