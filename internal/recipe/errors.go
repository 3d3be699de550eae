package recipe

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycleDetected marks a recipe graph that transitively references
	// itself. Fatal for that product's resolution only.
	ErrCycleDetected = errors.New("recipe: cycle detected")

	// ErrDepthExceeded marks product nesting deeper than MaxProductDepth.
	ErrDepthExceeded = errors.New("recipe: nesting depth exceeded")

	// ErrUnknownProduct is returned when a product identifier has no row in
	// the catalog snapshot.
	ErrUnknownProduct = errors.New("recipe: unknown product")

	// ErrUnknownIngredient is returned when a recipe line references an
	// ingredient missing from the catalog snapshot.
	ErrUnknownIngredient = errors.New("recipe: unknown ingredient")

	// ErrMalformedLine is returned by Load for rows that do not carry exactly
	// one owner and exactly one source.
	ErrMalformedLine = errors.New("recipe: malformed recipe line")
)

// CycleError reports the full walk that closed the cycle, not just the edge
// that tripped it.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("recipe: cycle detected: %s", strings.Join(e.Chain, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// DepthError reports a walk that nested products beyond MaxProductDepth.
type DepthError struct {
	Chain []string
	Depth int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("recipe: nesting depth %d exceeds limit of %d: %s",
		e.Depth, MaxProductDepth, strings.Join(e.Chain, " -> "))
}

func (e *DepthError) Is(target error) bool {
	return target == ErrDepthExceeded
}
