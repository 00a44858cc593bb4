package catalog

import "errors"

// ErrUnauthorized is returned for writes attempted without a signed-in user.
// No store call is made and the cache is left untouched.
var ErrUnauthorized = errors.New("authentication required")

// ValidationError reports input rejected before reaching the store
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
