// Package expression is the tree the compiler lowers a dependency graph into
// and the interpreter walks.
package expression

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/querycore/internal/query"
	"github.com/zclconf/go-cty/cty"
)

// Expression is one node of the tree. The set of implementations is closed:
// *Sequence, *Let, *If, *Func, *Raw, *Get.
type Expression interface {
	// write renders the expression at the given indentation level.
	write(sb *strings.Builder, indent int)
	expression()
}

// Sequence evaluates Items in order inside a fresh binding scope. Its value
// is the value of the last item.
type Sequence struct {
	Items []Expression
}

// Let evaluates Expr and binds its value to Name in the enclosing scope.
type Let struct {
	Name string
	Expr Expression
}

// Condition guards an If on a previously bound result.
type Condition struct {
	Binding string
	// RequireRows additionally requires the result to hold at least one row.
	RequireRows bool
}

// If evaluates Then when every condition holds and Else otherwise. A nil Else
// evaluates to the empty result.
type If struct {
	Conditions []Condition
	Then       Expression
	Else       Expression
}

// Input feeds a bound result into a Func's query template.
type Input struct {
	Binding   string
	Transform query.Transformer
	Link      *query.ParentLink
	Optional  bool
}

// Func is a backend call. Inputs are applied to Query in order right before
// the call.
type Func struct {
	Node   string
	Query  query.Query
	Inputs []Input
}

// RawKind tells apart raw commands returning rows from those returning a
// count.
type RawKind int

const (
	RawQuery RawKind = iota
	RawExecute
)

// Raw is a verbatim backend command with positional parameters.
type Raw struct {
	Query  string
	Params []cty.Value
	Kind   RawKind
}

// Get evaluates to the result bound to Name.
type Get struct {
	Name string
}

func (*Sequence) expression() {}
func (*Let) expression()      {}
func (*If) expression()       {}
func (*Func) expression()     {}
func (*Raw) expression()      {}
func (*Get) expression()      {}

// String renders an expression tree. Two structurally identical trees render
// identically.
func String(e Expression) string {
	var sb strings.Builder
	e.write(&sb, 0)
	return sb.String()
}

func pad(sb *strings.Builder, indent int) {
	sb.WriteString(strings.Repeat("  ", indent))
}

func (e *Sequence) write(sb *strings.Builder, indent int) {
	pad(sb, indent)
	sb.WriteString("sequence\n")
	for _, item := range e.Items {
		item.write(sb, indent+1)
	}
}

func (e *Let) write(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "let %s =\n", e.Name)
	e.Expr.write(sb, indent+1)
}

func (e *If) write(sb *strings.Builder, indent int) {
	pad(sb, indent)
	conds := make([]string, len(e.Conditions))
	for i, c := range e.Conditions {
		if c.RequireRows {
			conds[i] = "rows(" + c.Binding + ")"
		} else {
			conds[i] = "present(" + c.Binding + ")"
		}
	}
	fmt.Fprintf(sb, "if %s\n", strings.Join(conds, " && "))
	e.Then.write(sb, indent+1)
	if e.Else != nil {
		pad(sb, indent)
		sb.WriteString("else\n")
		e.Else.write(sb, indent+1)
	}
}

func (e *Func) write(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "call %s: %s", e.Node, e.Query)
	for _, in := range e.Inputs {
		marker := ""
		if in.Optional {
			marker = "?"
		}
		if in.Link != nil {
			marker += "^"
		}
		fmt.Fprintf(sb, " <- %s%s", in.Binding, marker)
	}
	sb.WriteByte('\n')
}

func (e *Raw) write(sb *strings.Builder, indent int) {
	pad(sb, indent)
	kind := "query"
	if e.Kind == RawExecute {
		kind = "execute"
	}
	fmt.Fprintf(sb, "raw %s %q (%d params)\n", kind, e.Query, len(e.Params))
}

func (e *Get) write(sb *strings.Builder, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "get %s\n", e.Name)
}
