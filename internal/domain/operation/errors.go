package operation

import "errors"

var (
	// ErrDuplicateOperation is returned by Register when the name is already
	// taken by a definition with a different signature.
	ErrDuplicateOperation = errors.New("duplicate operation")

	// ErrClassificationIncomplete is returned by Register when any of the six
	// classification fields is missing or invalid.
	ErrClassificationIncomplete = errors.New("classification incomplete")

	// ErrOperationNotFound is returned by Lookup for unknown names.
	ErrOperationNotFound = errors.New("operation not found")
)
