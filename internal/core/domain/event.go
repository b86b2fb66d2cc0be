package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message attribute names carried next to the body.
const (
	EventAttrSpecificationID = "specification_id"
	EventAttrTenantID        = "tenant_id"
	EventAttrTenantStatus    = "tenant_status"
)

// ChangeEvent signals that a specification must be re-rendered. It carries
// identity only; consumers always re-read the current record.
type ChangeEvent struct {
	SpecificationID string `json:"specification_id"`
	TenantID        string `json:"tenant_id"`
}

func (e ChangeEvent) Key() Key {
	return Key{TenantID: e.TenantID, ID: e.SpecificationID}
}

// Attributes returns the message attributes sent alongside the body.
func (e ChangeEvent) Attributes() map[string]string {
	return map[string]string{
		EventAttrSpecificationID: e.SpecificationID,
		EventAttrTenantID:        e.TenantID,
	}
}

func (e ChangeEvent) Body() ([]byte, error) {
	return json.Marshal(e)
}

type rawEvent struct {
	SpecificationID string `json:"specification_id"`
	TenantID        string `json:"tenant_id"`
	TenantStatus    string `json:"tenant_status"`
}

// ParseChangeEvent reads an event from a message body, falling back to the
// message attributes. The historical {specification_id, tenant_status}
// shape is accepted; the tenant is the part before '#'.
func ParseChangeEvent(body []byte, attrs map[string]string) (ChangeEvent, error) {
	var raw rawEvent
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return ChangeEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
	}
	if raw.SpecificationID == "" {
		raw.SpecificationID = attrs[EventAttrSpecificationID]
	}
	if raw.TenantID == "" {
		raw.TenantID = attrs[EventAttrTenantID]
	}
	if raw.TenantStatus == "" {
		raw.TenantStatus = attrs[EventAttrTenantStatus]
	}
	if raw.TenantID == "" && raw.TenantStatus != "" {
		raw.TenantID, _, _ = strings.Cut(raw.TenantStatus, "#")
	}

	id, err := ParseID(raw.SpecificationID)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := ValidateTenantID(raw.TenantID); err != nil {
		return ChangeEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return ChangeEvent{SpecificationID: id, TenantID: raw.TenantID}, nil
}
