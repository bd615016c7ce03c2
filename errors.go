package cdt

import "errors"

// Failure kinds. Result.Err wraps exactly one of them.
var (
	// ErrInputStructure reports malformed input: array lengths, empty input,
	// out of range indices, degenerate triangles, coincident vertices or a
	// vertex set spanning no volume.
	ErrInputStructure = errors.New("cdt: invalid input")
	// ErrRecoveryConflict reports constraints that could not be recovered
	// within budget. The result still holds the partial mesh.
	ErrRecoveryConflict = errors.New("cdt: constraint recovery conflict")
	// ErrNumericInvalid reports a non-finite output coordinate.
	ErrNumericInvalid = errors.New("cdt: numerically invalid result")
	// ErrInternal reports a broken internal invariant.
	ErrInternal = errors.New("cdt: internal error")
)

var kinds = []error{ErrInputStructure, ErrRecoveryConflict, ErrNumericInvalid, ErrInternal}

// Kind returns the failure kind sentinel of r or nil on success.
func (r Result) Kind() error {
	for _, k := range kinds {
		if errors.Is(r.Err, k) {
			return k
		}
	}
	return nil
}
