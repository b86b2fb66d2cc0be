package ports

import "context"

// TemplateSource loads binary document templates.
type TemplateSource interface {
	// Template returns domain.ErrTemplateNotFound when no template serves productType.
	Template(ctx context.Context, productType string) ([]byte, error)
}

// TemplateFiller rewrites every text cell of a binary template through
// replace, leaving other cells untouched.
type TemplateFiller interface {
	Fill(template []byte, replace func(text string) string) ([]byte, error)
	ContentType() string
	Extension() string
}
