package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Error classes
// ============================================================================

// Callers branch on these with errors.Is. Concrete errors below wrap one of them.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConditionFailed = errors.New("conditional write failed")
	ErrTransientStore  = errors.New("record store unavailable")
	ErrTransientQueue  = errors.New("change queue unavailable")
	ErrTransientBlob   = errors.New("blob store unavailable")
)

// ============================================================================
// Specification Errors
// ============================================================================

// Not found errors
var (
	ErrSpecificationNotFound = fmt.Errorf("specification %w", ErrNotFound)
	ErrGroupNotFound         = fmt.Errorf("specification group %w", ErrNotFound)
	ErrTemplateNotFound      = fmt.Errorf("template %w", ErrNotFound)
	ErrBlobNotFound          = fmt.Errorf("object %w", ErrNotFound)
)

// Validation errors
var (
	ErrMissingTenantID        = fmt.Errorf("%w: tenant ID is required (X-Tenant-ID header)", ErrValidation)
	ErrInvalidTenantID        = fmt.Errorf("%w: tenant ID must not contain '#' or '/'", ErrValidation)
	ErrInvalidSpecificationID = fmt.Errorf("%w: specification ID must be a UUID", ErrValidation)
	ErrInvalidGroupID         = fmt.Errorf("%w: specification group ID must be a UUID or %s", ErrValidation, NoGroup)
	ErrInvalidPayload         = fmt.Errorf("%w: invalid request body", ErrValidation)
	ErrInvalidStatus          = fmt.Errorf("%w: status must be a non-empty string without '#'", ErrValidation)
	ErrInvalidGroupName       = fmt.Errorf("%w: specification_group_name is required", ErrValidation)
	ErrInvalidObjectKey       = fmt.Errorf("%w: invalid object key", ErrValidation)
	ErrInvalidEvent           = fmt.Errorf("%w: malformed change event", ErrValidation)
)

// Business rule errors
var (
	ErrGroupNotEmpty = errors.New("specification group has specifications")
	ErrRenderFailed  = errors.New("render failed")
)
