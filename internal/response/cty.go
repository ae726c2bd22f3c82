package response

import (
	"github.com/zclconf/go-cty/cty"
)

// ToCty renders the response as a structured value. Count-only results
// become an object with a count attribute, single results an object (or a
// null when empty), and everything else a tuple of objects. Nested
// relations appear as attributes named after their relation field.
func (d *ResponseData) ToCty() cty.Value {
	if d.CountOnly {
		return cty.ObjectVal(map[string]cty.Value{"count": cty.NumberIntVal(int64(d.Count))})
	}
	if d.Single {
		if len(d.Items) == 0 {
			return cty.NullVal(cty.DynamicPseudoType)
		}
		return d.itemValue(d.Items[0])
	}
	if len(d.Items) == 0 {
		return cty.EmptyTupleVal
	}
	vals := make([]cty.Value, len(d.Items))
	for i, item := range d.Items {
		vals[i] = d.itemValue(item)
	}
	return cty.TupleVal(vals)
}

func (d *ResponseData) itemValue(item *Item) cty.Value {
	attrs := make(map[string]cty.Value, len(d.FieldNames)+len(item.Nested))
	for i, n := range d.FieldNames {
		attrs[n] = item.Values[i]
	}
	for name, nested := range item.Nested {
		attrs[name] = nested.ToCty()
	}
	return cty.ObjectVal(attrs)
}
