package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
	"spec-registry-service/internal/core/ports/output"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_\-]+(?:\.[A-Za-z0-9_\-]+)*)\s*\}\}`)

// Substitute replaces each {{path}} token in text with the scalar found at
// path in fields. Paths walk nested maps by key and lists by index, e.g.
// {{fabric.materials.0.name}}. Tokens that resolve to nothing, or to a map
// or list, are left as written.
func Substitute(text string, fields codec.Map) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		path := placeholderPattern.FindStringSubmatch(token)[1]
		v, ok := Lookup(fields, path)
		if !ok {
			return token
		}
		s, ok := scalarText(v)
		if !ok {
			return token
		}
		return s
	})
}

// Lookup resolves a dotted path against fields.
func Lookup(fields codec.Map, path string) (codec.Value, bool) {
	var cur codec.Value = fields
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case codec.Map:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case codec.List:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func scalarText(v codec.Value) (string, bool) {
	switch t := v.(type) {
	case codec.String:
		return string(t), true
	case codec.Int:
		return strconv.FormatInt(int64(t), 10), true
	case codec.Decimal:
		return t.String(), true
	case codec.Bool:
		return strconv.FormatBool(bool(t)), true
	case codec.Null:
		return "", true
	default:
		return "", false
	}
}

// RenderService fills a product-type template with a specification's fields.
type RenderService struct {
	templates ports.TemplateSource
	filler    ports.TemplateFiller
}

func NewRenderService(templates ports.TemplateSource, filler ports.TemplateFiller) *RenderService {
	return &RenderService{templates: templates, filler: filler}
}

// Render produces the artifact bytes. Rendering an unchanged record again
// yields the same substituted text.
func (s *RenderService) Render(ctx context.Context, spec *domain.Specification) ([]byte, error) {
	tmpl, err := s.templates.Template(ctx, spec.Type)
	if err != nil {
		return nil, err
	}

	fields := spec.Fields()
	out, err := s.filler.Fill(tmpl, func(text string) string {
		return Substitute(text, fields)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRenderFailed, spec.SpecificationID, err)
	}
	return out, nil
}

func (s *RenderService) ContentType() string { return s.filler.ContentType() }

func (s *RenderService) Extension() string { return s.filler.Extension() }
