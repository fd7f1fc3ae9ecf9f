package catalog

import (
	"fmt"

	"github.com/storefront/merchandising/internal/domain/shared"
)

// Error codes raised by the catalog domain
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeDepthExceeded        = "DEPTH_EXCEEDED"
	CodeReferentialIntegrity = "REFERENTIAL_INTEGRITY"
	CodeDeletionBlocked      = "DELETION_BLOCKED"
	CodeCapacityExceeded     = "CAPACITY_EXCEEDED"
	CodeDuplicatePlacement   = "DUPLICATE_PLACEMENT"
	CodeConcurrencyConflict  = "CONCURRENCY_CONFLICT"
	CodeUploadFailed         = "UPLOAD_FAILED"
	CodeNotFound             = "NOT_FOUND"
)

// NewValidationError returns a VALIDATION_ERROR
func NewValidationError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewDepthExceededError returns a DEPTH_EXCEEDED error for the offending level
func NewDepthExceededError(level int) *shared.DomainError {
	return shared.NewDomainError(CodeDepthExceeded,
		fmt.Sprintf("Category level %d exceeds the maximum level %d", level, MaxCategoryLevel))
}

// NewReferentialIntegrityError returns a REFERENTIAL_INTEGRITY error for an unknown parent
func NewReferentialIntegrityError(parentID fmt.Stringer) *shared.DomainError {
	return shared.NewDomainError(CodeReferentialIntegrity,
		fmt.Sprintf("Parent category %s does not exist", parentID))
}

// NewDeletionBlockedError returns a DELETION_BLOCKED error
func NewDeletionBlockedError(reason string) *shared.DomainError {
	return shared.NewDomainError(CodeDeletionBlocked, reason)
}

// NewCapacityExceededError returns a CAPACITY_EXCEEDED error for a full list
func NewCapacityExceededError(position Position, capacity int) *shared.DomainError {
	return shared.NewDomainError(CodeCapacityExceeded,
		fmt.Sprintf("%s placement list is full (capacity %d)", position, capacity))
}

// NewDuplicatePlacementError returns a DUPLICATE_PLACEMENT error
func NewDuplicatePlacementError(position Position, categoryID fmt.Stringer) *shared.DomainError {
	return shared.NewDomainError(CodeDuplicatePlacement,
		fmt.Sprintf("Category %s is already placed in %s", categoryID, position))
}

// NewConcurrencyConflictError returns a CONCURRENCY_CONFLICT error wrapping cause
func NewConcurrencyConflictError(message string, cause error) *shared.DomainError {
	return shared.WrapDomainError(CodeConcurrencyConflict, message, cause)
}

// NewUploadError wraps a media collaborator failure
func NewUploadError(cause error) *shared.DomainError {
	return shared.WrapDomainError(CodeUploadFailed, "Media upload failed", cause)
}

// NewNotFoundError returns a NOT_FOUND error for the named resource
func NewNotFoundError(resource string, id fmt.Stringer) *shared.DomainError {
	return shared.NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", resource, id))
}
