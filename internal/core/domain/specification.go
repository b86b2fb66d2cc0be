package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"spec-registry-service/internal/core/codec"
)

type Status string

const StatusDraft Status = "DRAFT"

// NoGroup is stored in group_id for specifications outside any group.
const NoGroup = "NO_GROUP"

// TimestampLayout is the boundary format for every stored timestamp.
const TimestampLayout = "2006-01-02T15:04:05+00:00"

// Attribute names as stored.
const (
	AttrTenantID        = "tenant_id"
	AttrSpecificationID = "specification_id"
	AttrBrandName       = "brand_name"
	AttrProductName     = "product_name"
	AttrProductCode     = "product_code"
	AttrType            = "type"
	AttrStatus          = "status"
	AttrTenantStatus    = "tenant_status"
	AttrGroupID         = "group_id"
	AttrCreatedBy       = "created_by"
	AttrUpdatedBy       = "updated_by"
	AttrCreatedAt       = "created_at"
	AttrUpdatedAt       = "updated_at"
	AttrArtifact        = "artifact"
	AttrObjectKey       = "object_key"
)

// SpecificationMutableFields is the allow-list of attributes a client update
// may replace. status is handled separately because it fans out to
// tenant_status.
var SpecificationMutableFields = []string{
	AttrBrandName,
	AttrProductName,
	AttrProductCode,
	AttrGroupID,
	AttrType,
	"progress",
	"fit",
	"fabric",
	"tag",
	"care_label",
	"patch",
	"oem_points",
	"sample",
	"main_production",
	"information",
}

// Index names shared by every Table implementation.
const (
	IndexTenant = "TenantIdIndex"
	IndexGroup  = "GroupIdIndex"
)

// Key addresses one record.
type Key struct {
	TenantID string
	ID       string
}

type UserRef struct {
	UserID   string
	UserName string
}

// ArtifactPointer references the most recently completed render.
type ArtifactPointer struct {
	ObjectKey string
	UpdatedAt string
}

type Specification struct {
	TenantID        string
	SpecificationID string
	BrandName       string
	ProductName     string
	ProductCode     string
	Type            string
	Status          Status
	GroupID         string
	CreatedBy       *UserRef
	UpdatedBy       *UserRef
	CreatedAt       string
	UpdatedAt       string
	Artifact        *ArtifactPointer

	// Attributes holds every other stored attribute (fit tables, fabric,
	// notes, file references) exactly as decoded.
	Attributes codec.Map
}

func (s *Specification) Key() Key {
	return Key{TenantID: s.TenantID, ID: s.SpecificationID}
}

// TenantStatus is the derived composite attribute for tenant+status range queries.
func TenantStatus(tenantID string, status Status) string {
	return tenantID + "#" + string(status)
}

// FormatTimestamp renders t in TimestampLayout, UTC, second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NewID returns a fresh version-4 identifier.
func NewID() string {
	return uuid.NewString()
}

// ParseID validates a record identifier. Only the canonical 36-character
// form is accepted; the result is lower-cased.
func ParseID(s string) (string, error) {
	if len(s) != 36 {
		return "", ErrInvalidSpecificationID
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", ErrInvalidSpecificationID
	}
	return id.String(), nil
}

// ValidateTenantID rejects tenant IDs that would break composite keys or
// blob namespacing.
func ValidateTenantID(tenantID string) error {
	if tenantID == "" {
		return ErrMissingTenantID
	}
	if strings.ContainsAny(tenantID, "#/") {
		return ErrInvalidTenantID
	}
	return nil
}

// ValidateStatus rejects statuses that cannot form a tenant_status value.
func ValidateStatus(status string) error {
	if status == "" || strings.Contains(status, "#") {
		return ErrInvalidStatus
	}
	return nil
}

var objectKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateObjectKey checks a file name below a record's blob prefix.
func ValidateObjectKey(key string) error {
	if !objectKeyPattern.MatchString(key) || strings.Contains(key, "..") {
		return ErrInvalidObjectKey
	}
	return nil
}

// RecordPrefix is the blob namespace holding a record's assets and renders.
func RecordPrefix(tenantID, specificationID string) string {
	return tenantID + "/" + specificationID + "/"
}

// ArtifactPrefix holds rendered artifacts below RecordPrefix.
func ArtifactPrefix(tenantID, specificationID string) string {
	return RecordPrefix(tenantID, specificationID) + "artifacts/"
}

// NewArtifactKey returns a never-before-used key for one render.
func NewArtifactKey(tenantID, specificationID, ext string) string {
	return ArtifactPrefix(tenantID, specificationID) + uuid.NewString() + ext
}

// Fields returns the whole record as one native map, the shape it is stored in.
func (s *Specification) Fields() codec.Map {
	m := s.Attributes.Clone()
	if m == nil {
		m = codec.Map{}
	}
	m[AttrTenantID] = codec.String(s.TenantID)
	m[AttrSpecificationID] = codec.String(s.SpecificationID)
	m[AttrBrandName] = codec.String(s.BrandName)
	m[AttrProductName] = codec.String(s.ProductName)
	m[AttrProductCode] = codec.String(s.ProductCode)
	m[AttrStatus] = codec.String(s.Status)
	m[AttrTenantStatus] = codec.String(TenantStatus(s.TenantID, s.Status))
	m[AttrGroupID] = codec.String(s.GroupID)
	if s.Type != "" {
		m[AttrType] = codec.String(s.Type)
	}
	if s.CreatedAt != "" {
		m[AttrCreatedAt] = codec.String(s.CreatedAt)
	}
	if s.UpdatedAt != "" {
		m[AttrUpdatedAt] = codec.String(s.UpdatedAt)
	}
	if s.CreatedBy != nil {
		m[AttrCreatedBy] = s.CreatedBy.value()
	}
	if s.UpdatedBy != nil {
		m[AttrUpdatedBy] = s.UpdatedBy.value()
	}
	if s.Artifact != nil {
		m[AttrArtifact] = s.Artifact.Value()
	}
	return m
}

// ToItem encodes the record for a Put. tenant_status is always derived here.
func (s *Specification) ToItem() codec.Item {
	return codec.Encode(s.Fields())
}

// SpecificationFromItem decodes a stored item.
func SpecificationFromItem(item codec.Item) (*Specification, error) {
	m, err := codec.Decode(item)
	if err != nil {
		return nil, err
	}

	s := &Specification{
		TenantID:        m.GetString(AttrTenantID),
		SpecificationID: m.GetString(AttrSpecificationID),
		BrandName:       m.GetString(AttrBrandName),
		ProductName:     m.GetString(AttrProductName),
		ProductCode:     m.GetString(AttrProductCode),
		Type:            m.GetString(AttrType),
		Status:          Status(m.GetString(AttrStatus)),
		GroupID:         m.GetString(AttrGroupID),
		CreatedAt:       m.GetString(AttrCreatedAt),
		UpdatedAt:       m.GetString(AttrUpdatedAt),
		CreatedBy:       userFromValue(m.GetMap(AttrCreatedBy)),
		UpdatedBy:       userFromValue(m.GetMap(AttrUpdatedBy)),
		Artifact:        ArtifactFromValue(m.GetMap(AttrArtifact)),
	}
	if s.GroupID == "" {
		s.GroupID = NoGroup
	}

	for _, k := range []string{
		AttrTenantID, AttrSpecificationID, AttrBrandName, AttrProductName,
		AttrProductCode, AttrType, AttrStatus, AttrTenantStatus, AttrGroupID,
		AttrCreatedAt, AttrUpdatedAt, AttrCreatedBy, AttrUpdatedBy, AttrArtifact,
	} {
		delete(m, k)
	}
	s.Attributes = m
	return s, nil
}

func (u *UserRef) value() codec.Value {
	return codec.Map{
		"user_id":   codec.String(u.UserID),
		"user_name": codec.String(u.UserName),
	}
}

func userFromValue(m codec.Map) *UserRef {
	if m == nil {
		return nil
	}
	return &UserRef{UserID: m.GetString("user_id"), UserName: m.GetString("user_name")}
}

// Value is the stored form of the pointer.
func (p *ArtifactPointer) Value() codec.Value {
	return codec.Map{
		AttrObjectKey: codec.String(p.ObjectKey),
		AttrUpdatedAt: codec.String(p.UpdatedAt),
	}
}

// ArtifactFromValue returns nil when no render has completed yet.
func ArtifactFromValue(m codec.Map) *ArtifactPointer {
	if m == nil || m.GetString(AttrObjectKey) == "" {
		return nil
	}
	return &ArtifactPointer{ObjectKey: m.GetString(AttrObjectKey), UpdatedAt: m.GetString(AttrUpdatedAt)}
}
