package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder often populates optional fields with non-nil, zero-width
// expression objects, so a simple nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Expression is nil, considering it undefined.", "attribute", attrName)
		return false
	}

	// A real attribute occupies bytes in the file, while a placeholder for an
	// omitted optional attribute has a zero-width range.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// generators maps default functions onto the scalar types they can fill.
var generators = map[string][]model.TypeIdentifier{
	"autoincrement": {model.TypeInt},
	"uuid":          {model.TypeUUID, model.TypeString},
}

// translateDefault interprets a field's default expression. Generator calls
// make the field auto-generated; anything else must evaluate to a literal
// convertible to the field's type.
func translateDefault(expr hcl.Expression, typ model.TypeIdentifier) (autogen bool, def *cty.Value, err error) {
	if call, ok := expr.(*hclsyntax.FunctionCallExpr); ok {
		types, known := generators[call.Name]
		if !known {
			return false, nil, fmt.Errorf("unknown default function %s()", call.Name)
		}
		if len(call.Args) != 0 {
			return false, nil, fmt.Errorf("default function %s() takes no arguments", call.Name)
		}
		for _, t := range types {
			if t == typ {
				return true, nil, nil
			}
		}
		return false, nil, fmt.Errorf("default function %s() cannot fill a %s field", call.Name, typ)
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return false, nil, fmt.Errorf("invalid default value: %w", diags)
	}
	val, err = convert.Convert(val, typ.CtyType())
	if err != nil {
		return false, nil, fmt.Errorf("default value is not a valid %s: %w", typ, err)
	}
	return false, &val, nil
}

func parseDuration(attr string, s *string, into *time.Duration) error {
	if s == nil {
		return nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", attr, err)
	}
	if d < 0 {
		return fmt.Errorf("invalid %s: must not be negative", attr)
	}
	*into = d
	return nil
}
