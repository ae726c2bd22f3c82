package interpreter

import "fmt"

// DepthExceededError is returned when the expression tree nests deeper than
// the interpreter allows.
type DepthExceededError struct {
	Max int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("expression depth exceeds the maximum of %d", e.Max)
}

// UnboundError is returned when an expression reads a binding that no
// earlier expression in scope produced.
type UnboundError struct {
	Name string
}

func (e *UnboundError) Error() string {
	return fmt.Sprintf("binding %q is not available", e.Name)
}
