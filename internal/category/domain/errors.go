package domain

import "errors"

// ValidationError is a structural invariant violation. It is always
// returned to the caller, never corrected silently.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid_category: " + e.Field + " " + e.Reason
}

var (
	ErrBlankTitle     = &ValidationError{Field: "title", Reason: "blank"}
	ErrDepthExceeded  = &ValidationError{Field: "parent_id", Reason: "depth_exceeded"}
	ErrProductParent  = &ValidationError{Field: "parent_id", Reason: "product_cannot_have_children"}
	ErrCycle          = &ValidationError{Field: "parent_id", Reason: "cycle_detected"}
	ErrSelfParent     = &ValidationError{Field: "parent_id", Reason: "self_reference"}
	ErrParentNotFound = &ValidationError{Field: "parent_id", Reason: "not_found"}
	ErrSlugCollision  = &ValidationError{Field: "slug", Reason: "collision_unresolvable"}
)

var (
	ErrNotFound          = errors.New("category_not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrTreeBusy          = errors.New("category_tree_busy")
	ErrTransactionFailed = errors.New("category_transaction_failed")
)

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
