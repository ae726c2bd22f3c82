// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

// ModelIdentifier is an ordered, non-empty collection of fields that together
// uniquely identify a record of a model. A model can be identified by several
// of these at once (primary key, unique constraints).
type ModelIdentifier struct {
	fields []Field
}

// NewModelIdentifier creates an identifier over the given fields, in order.
func NewModelIdentifier(fields ...Field) ModelIdentifier {
	return ModelIdentifier{fields: fields}
}

// Names returns the field names in order.
func (id ModelIdentifier) Names() []string {
	names := make([]string, len(id.fields))
	for i, f := range id.fields {
		names[i] = f.Name()
	}
	return names
}

// Fields returns the fields in order.
func (id ModelIdentifier) Fields() []Field {
	return id.fields
}

// Len returns the number of fields, not the number of columns.
func (id ModelIdentifier) Len() int {
	return len(id.fields)
}

// IsSingularField reports whether the identifier consists of one field.
func (id ModelIdentifier) IsSingularField() bool {
	return id.Len() == 1
}

// Get returns the field with the given name.
func (id ModelIdentifier) Get(name string) (Field, bool) {
	for _, f := range id.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// DataSourceFields expands the identifier into its storage columns. Scalar
// fields contribute one column each, relation fields all of their foreign key
// columns, in field order.
func (id ModelIdentifier) DataSourceFields() []*DataSourceField {
	var out []*DataSourceField
	for _, f := range id.fields {
		switch f := f.(type) {
		case *ScalarField:
			out = append(out, f.DataSourceField())
		case *RelationField:
			out = append(out, f.DataSourceFields()...)
		}
	}
	return out
}
