package mapping

import "github.com/pkg/errors"

// ErrShapeMismatch is the only failure class the geometry kernels surface:
// input dimensions that do not match the documented contract. Malformed
// point values (NaN, out of grid bounds) are masked, never returned as
// errors.
var ErrShapeMismatch = errors.New("input shape does not match contract")
