// Package update builds sparse partial updates against the record store.
package update

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
)

// Condition guards an Op. The store rejects the write with
// domain.ErrConditionFailed when it does not hold.
type Condition int

const (
	// Always applies the write, creating the item if absent.
	Always Condition = iota
	// ItemExists applies the write only to an existing item.
	ItemExists
)

// Assignment replaces one top-level attribute.
type Assignment struct {
	Name  string
	Value codec.AttributeValue
}

// Op is one atomic single-item update.
type Op struct {
	Set       []Assignment
	Condition Condition
}

// Names lists the assigned attribute names in order.
func (op Op) Names() []string {
	names := make([]string, len(op.Set))
	for i, a := range op.Set {
		names[i] = a.Name
	}
	return names
}

// Get returns the assignment for name.
func (op Op) Get(name string) (codec.AttributeValue, bool) {
	for _, a := range op.Set {
		if a.Name == name {
			return a.Value, true
		}
	}
	return codec.AttributeValue{}, false
}

// Expression renders the op as a SET expression. Every attribute name and
// value goes through a positional placeholder (#n0, :v0, ...), so reserved
// words such as "status" or "type" never appear in the expression text.
func (op Op) Expression() (expr string, names map[string]string, values map[string]codec.AttributeValue) {
	names = make(map[string]string, len(op.Set))
	values = make(map[string]codec.AttributeValue, len(op.Set))
	parts := make([]string, len(op.Set))
	for i, a := range op.Set {
		n := "#n" + strconv.Itoa(i)
		v := ":v" + strconv.Itoa(i)
		names[n] = a.Name
		values[v] = a.Value
		parts[i] = n + " = " + v
	}
	return "SET " + strings.Join(parts, ", "), names, values
}

// Apply returns a copy of item with the assignments applied. In-memory
// stores use it; real stores translate Op natively.
func (op Op) Apply(item codec.Item) codec.Item {
	out := item.Clone()
	for _, a := range op.Set {
		out[a.Name] = a.Value
	}
	return out
}

// FieldEncoder validates and encodes one payload value.
type FieldEncoder func(v codec.Value) (codec.AttributeValue, error)

// AnyValue accepts any native value, including nested maps and lists.
func AnyValue(v codec.Value) (codec.AttributeValue, error) {
	return codec.EncodeLeaf(v), nil
}

// StringValue accepts only strings.
func StringValue(v codec.Value) (codec.AttributeValue, error) {
	s, ok := v.(codec.String)
	if !ok {
		return codec.AttributeValue{}, fmt.Errorf("want string, got %s", v.Kind())
	}
	return codec.S(string(s)), nil
}

// GroupValue accepts a group UUID or domain.NoGroup.
func GroupValue(v codec.Value) (codec.AttributeValue, error) {
	s, ok := v.(codec.String)
	if !ok {
		return codec.AttributeValue{}, fmt.Errorf("want string, got %s", v.Kind())
	}
	id, err := domain.ParseGroupID(string(s))
	if err != nil {
		return codec.AttributeValue{}, err
	}
	return codec.S(id), nil
}

type field struct {
	name   string
	encode FieldEncoder
}

// Builder turns client payloads into Ops over a fixed allow-list.
type Builder struct {
	fields     []field
	withStatus bool
	now        func() time.Time
}

type Option func(*Builder)

// WithStatus enables the status field and its derived tenant_status.
func WithStatus() Option {
	return func(b *Builder) { b.withStatus = true }
}

// WithEncoder overrides the encoder for one allow-listed field.
func WithEncoder(name string, enc FieldEncoder) Option {
	return func(b *Builder) {
		for i := range b.fields {
			if b.fields[i].name == name {
				b.fields[i].encode = enc
			}
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

func NewBuilder(allowed []string, opts ...Option) *Builder {
	b := &Builder{now: time.Now}
	for _, name := range allowed {
		b.fields = append(b.fields, field{name: name, encode: AnyValue})
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewSpecificationBuilder is the builder for the specification record schema.
func NewSpecificationBuilder(opts ...Option) *Builder {
	base := []Option{
		WithStatus(),
		WithEncoder(domain.AttrBrandName, StringValue),
		WithEncoder(domain.AttrProductName, StringValue),
		WithEncoder(domain.AttrProductCode, StringValue),
		WithEncoder(domain.AttrType, StringValue),
		WithEncoder(domain.AttrGroupID, GroupValue),
	}
	return NewBuilder(domain.SpecificationMutableFields, append(base, opts...)...)
}

// NewGroupBuilder is the builder for specification groups.
func NewGroupBuilder(opts ...Option) *Builder {
	base := []Option{WithEncoder(domain.AttrGroupName, StringValue)}
	return NewBuilder(domain.GroupMutableFields, append(base, opts...)...)
}

// BuildFromJSON parses body and builds the update. A body that is not a JSON
// object fails before anything else happens.
func (b *Builder) BuildFromJSON(body []byte, tenantID string) (Op, error) {
	payload, err := codec.ParseJSON(body)
	if err != nil {
		return Op{}, fmt.Errorf("%w: %w", domain.ErrInvalidPayload, err)
	}
	return b.BuildPartialUpdate(payload, tenantID)
}

// BuildPartialUpdate assigns every allow-listed key present in payload, then
// updated_at. A non-null status also assigns tenant_status in the same Op.
// Keys outside the allow-list are ignored.
func (b *Builder) BuildPartialUpdate(payload codec.Map, tenantID string) (Op, error) {
	op := Op{Condition: ItemExists}

	for _, f := range b.fields {
		v, ok := payload[f.name]
		if !ok {
			continue
		}
		av, err := f.encode(v)
		if err != nil {
			return Op{}, fmt.Errorf("%w: field %q: %w", domain.ErrInvalidPayload, f.name, err)
		}
		op.Set = append(op.Set, Assignment{Name: f.name, Value: av})
	}

	if b.withStatus {
		if v, ok := payload[domain.AttrStatus]; ok && v.Kind() != codec.KindNull {
			s, isString := v.(codec.String)
			if !isString {
				return Op{}, domain.ErrInvalidStatus
			}
			if err := domain.ValidateStatus(string(s)); err != nil {
				return Op{}, err
			}
			status := domain.Status(s)
			op.Set = append(op.Set,
				Assignment{Name: domain.AttrStatus, Value: codec.S(string(status))},
				Assignment{Name: domain.AttrTenantStatus, Value: codec.S(domain.TenantStatus(tenantID, status))},
			)
		}
	}

	op.Set = append(op.Set, Assignment{
		Name:  domain.AttrUpdatedAt,
		Value: codec.S(domain.FormatTimestamp(b.now())),
	})
	return op, nil
}

// SetArtifact points the record at a freshly uploaded render. updated_at is
// left alone; it tracks client edits only.
func SetArtifact(p domain.ArtifactPointer) Op {
	return Op{
		Set:       []Assignment{{Name: domain.AttrArtifact, Value: codec.EncodeLeaf(p.Value())}},
		Condition: ItemExists,
	}
}
