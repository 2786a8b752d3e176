package context

import "errors"

// ErrTypeMismatch is returned by Fetch when a cached value has an unexpected type.
var ErrTypeMismatch = errors.New("request context value type mismatch")
