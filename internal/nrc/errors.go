package nrc

import (
	"fmt"
	"math"
	"strings"
)

// DomainError reports physiological inputs outside the domain of an equation.
type DomainError struct {
	Equation string
	Args     []Arg
}

// Arg is a named equation argument.
type Arg struct {
	Name  string
	Value float64
}

func (e *DomainError) Error() string {
	parts := make([]string, 0, len(e.Args))
	for _, a := range e.Args {
		parts = append(parts, fmt.Sprintf("%s=%g", a.Name, a.Value))
	}
	return fmt.Sprintf("nrc: invalid arguments to %s: %s", e.Equation, strings.Join(parts, ", "))
}

// requireNonNegative returns a *DomainError listing every argument that is
// negative or NaN, or nil when all are valid.
func requireNonNegative(equation string, args ...Arg) error {
	var bad []Arg
	for _, a := range args {
		if a.Value < 0 || math.IsNaN(a.Value) {
			bad = append(bad, a)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return &DomainError{Equation: equation, Args: bad}
}
