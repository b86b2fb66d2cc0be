package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spec-registry-service/internal/core/domain"
	"spec-registry-service/internal/core/ports/output"
	"spec-registry-service/internal/core/update"
)

type GroupService struct {
	groups  ports.Table
	specs   RecordStore
	builder *update.Builder
	now     func() time.Time
}

func NewGroupService(groups ports.Table, specs RecordStore) *GroupService {
	s := &GroupService{groups: groups, specs: specs, now: time.Now}
	s.builder = update.NewGroupBuilder(update.WithClock(func() time.Time { return s.now() }))
	return s
}

func (s *GroupService) Create(ctx context.Context, tenantID, name string) (*domain.Group, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidGroupName
	}

	g := &domain.Group{
		TenantID:  tenantID,
		GroupID:   domain.NewID(),
		Name:      name,
		UpdatedAt: domain.FormatTimestamp(s.now()),
	}
	if err := s.groups.Put(ctx, g.ToItem()); err != nil {
		return nil, fmt.Errorf("put group: %w", err)
	}
	return g, nil
}

func (s *GroupService) Get(ctx context.Context, tenantID, id string) (*domain.Group, error) {
	key, err := groupKey(tenantID, id)
	if err != nil {
		return nil, err
	}
	item, err := s.groups.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return domain.GroupFromItem(item)
}

func (s *GroupService) List(ctx context.Context, tenantID string) ([]*domain.Group, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	items, err := s.groups.Query(ctx, ports.Query{Index: domain.IndexTenant, PartitionValue: tenantID})
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	groups := make([]*domain.Group, 0, len(items))
	for _, item := range items {
		g, err := domain.GroupFromItem(item)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Update renames a group. Only specification_group_name is writable.
func (s *GroupService) Update(ctx context.Context, tenantID, id string, body []byte) error {
	key, err := groupKey(tenantID, id)
	if err != nil {
		return err
	}
	op, err := s.builder.BuildFromJSON(body, tenantID)
	if err != nil {
		return err
	}
	if v, ok := op.Get(domain.AttrGroupName); ok && strings.TrimSpace(v.S) == "" {
		return domain.ErrInvalidGroupName
	}

	if err := s.groups.Update(ctx, key, op); err != nil {
		if errors.Is(err, domain.ErrConditionFailed) {
			return domain.ErrGroupNotFound
		}
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

// Delete refuses while any specification of the tenant still references the group.
func (s *GroupService) Delete(ctx context.Context, tenantID, id string) error {
	key, err := groupKey(tenantID, id)
	if err != nil {
		return err
	}
	if _, err := s.groups.Get(ctx, key); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrGroupNotFound
		}
		return err
	}

	members, err := s.specs.QueryByGroupAndStatus(ctx, key.ID, tenantID, "")
	if err != nil {
		return fmt.Errorf("query group members: %w", err)
	}
	if len(members) > 0 {
		return domain.ErrGroupNotEmpty
	}
	return s.groups.Delete(ctx, key)
}

func groupKey(tenantID, id string) (domain.Key, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return domain.Key{}, err
	}
	if id == domain.NoGroup {
		return domain.Key{}, domain.ErrInvalidGroupID
	}
	parsed, err := domain.ParseGroupID(id)
	if err != nil {
		return domain.Key{}, err
	}
	return domain.Key{TenantID: tenantID, ID: parsed}, nil
}
