package habitat

import (
	"errors"

	c "github.com/pthm-cable/darwin/components"
)

var (
	// ErrInvalidArgument reports malformed inputs: negative lengths or
	// energies, non-monotonic mutation bounds, unknown or dead parents.
	ErrInvalidArgument = c.ErrInvalidArgument

	// ErrInvalidState reports an operation on an animal that violates its
	// precondition, such as moving a dead or genome-less animal.
	ErrInvalidState = errors.New("invalid state")
)
