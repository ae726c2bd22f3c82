// This file contains the logic for parsing HCL field type expressions (e.g.,
// `Int`, `list(Post)`, `optional(String)`) into a type reference.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/querycore/internal/ctxlog"
)

// typeRef is a parsed field type: a scalar type name or a model name, plus
// its arity.
type typeRef struct {
	Name     string
	List     bool
	Optional bool
}

// typeExprToRef converts an HCL type expression into a typeRef.
func typeExprToRef(ctx context.Context, expr hcl.Expression) (typeRef, error) {
	logger := ctxlog.FromContext(ctx)

	switch v := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		logger.Debug("Parsing type expression as a function call.", "call", v.Name)
		if len(v.Args) != 1 {
			return typeRef{}, fmt.Errorf("type modifier %s() requires exactly one argument, got %d", v.Name, len(v.Args))
		}
		inner, ok := v.Args[0].(*hclsyntax.ScopeTraversalExpr)
		if !ok {
			return typeRef{}, fmt.Errorf("the argument to %s() must be a type name, got %T", v.Name, v.Args[0])
		}
		ref, err := typeExprToRef(ctx, inner)
		if err != nil {
			return typeRef{}, err
		}

		switch v.Name {
		case "list":
			ref.List = true
		case "optional":
			ref.Optional = true
		default:
			return typeRef{}, fmt.Errorf("unknown type modifier %q", v.Name)
		}
		return ref, nil

	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return typeRef{}, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		rootName := v.Traversal.RootName()
		logger.Debug("Parsed type keyword.", "keyword", rootName)
		return typeRef{Name: rootName}, nil

	default:
		return typeRef{}, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}
