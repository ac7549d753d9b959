package dynalloc

import "github.com/pkg/errors"

// ErrOutOfMemory is returned (wrapped with call-site context) whenever the
// heap provider refuses to extend the arena.
var ErrOutOfMemory = errors.New("dynalloc: heap provider out of memory")
