package storage

import "errors"

// ErrNotFound reports that a scenario, scene, selection, or play session the
// caller referenced does not exist. Callers translate it into an empty result
// or a redirect; it is never fatal.
var ErrNotFound = errors.New("not found")
