package element

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeCount is returned when an element is constructed with a node
	// count that does not match its family.
	ErrNodeCount = errors.New("element: wrong node count")
	// ErrKind is returned for an unsupported element family.
	ErrKind = errors.New("element: unsupported kind")
	// ErrDegenerate marks a zero-volume or inverted element.
	ErrDegenerate = errors.New("element: degenerate element")
	// ErrConductivity is returned for a non-positive or non-finite
	// conductivity.
	ErrConductivity = errors.New("element: conductivity must be positive and finite")
	// ErrOutside is returned when a point is not inside an element.
	ErrOutside = errors.New("element: point outside element")
	// ErrInversion is returned when the natural coordinates of a point
	// cannot be determined.
	ErrInversion = errors.New("element: natural coordinate inversion failed")
)

// DegenerateError carries the identity of an element whose mapping Jacobian
// is not positive at some evaluation point.
type DegenerateError struct {
	ID       int
	Kind     Kind
	Point    []float64
	Jacobian float64
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("element %d (%v): non-positive jacobian %g at natural point %v", e.ID, e.Kind, e.Jacobian, e.Point)
}

func (e *DegenerateError) Unwrap() error { return ErrDegenerate }
