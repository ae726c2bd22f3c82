// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

// Model is a single model of the schema: a named set of fields stored in one
// table (or bucket, or collection) of the backend.
type Model struct {
	Name       string
	fields     []Field
	primaryKey []string
	uniques    [][]string
	schema     *Schema
}

// NewModel creates a model. Scalar fields carrying the ID attribute form the
// primary key unless WithID overrides it.
func NewModel(name string, fields ...Field) *Model {
	m := &Model{Name: name, fields: fields}
	for _, f := range fields {
		if sf, ok := f.(*ScalarField); ok && sf.id {
			m.primaryKey = append(m.primaryKey, sf.Name())
		}
	}
	return m
}

// WithID sets a (compound) primary key.
func (m *Model) WithID(fields ...string) *Model {
	m.primaryKey = fields
	return m
}

// WithUnique adds a (compound) unique constraint.
func (m *Model) WithUnique(fields ...string) *Model {
	m.uniques = append(m.uniques, fields)
	return m
}

// Schema returns the schema the model has been linked into.
func (m *Model) Schema() *Schema {
	return m.schema
}

// Fields returns all fields in declaration order.
func (m *Model) Fields() []Field {
	return m.fields
}

// Field looks up a field by name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// ScalarField looks up a scalar field by name.
func (m *Model) ScalarField(name string) (*ScalarField, bool) {
	f, ok := m.Field(name)
	if !ok {
		return nil, false
	}
	sf, ok := f.(*ScalarField)
	return sf, ok
}

// RelationField looks up a relation field by name.
func (m *Model) RelationField(name string) (*RelationField, bool) {
	f, ok := m.Field(name)
	if !ok {
		return nil, false
	}
	rf, ok := f.(*RelationField)
	return rf, ok
}

// ScalarFields returns the scalar fields in declaration order.
func (m *Model) ScalarFields() []*ScalarField {
	var out []*ScalarField
	for _, f := range m.fields {
		if sf, ok := f.(*ScalarField); ok {
			out = append(out, sf)
		}
	}
	return out
}

// RelationFields returns the relation fields in declaration order.
func (m *Model) RelationFields() []*RelationField {
	var out []*RelationField
	for _, f := range m.fields {
		if rf, ok := f.(*RelationField); ok {
			out = append(out, rf)
		}
	}
	return out
}

// Columns returns every distinct storage column of the model in declaration
// order. Foreign key columns shared with a scalar field appear once.
func (m *Model) Columns() []*DataSourceField {
	seen := make(map[string]struct{})
	var out []*DataSourceField
	for _, f := range m.fields {
		for _, dsf := range f.DataSourceFields() {
			if _, ok := seen[dsf.Name]; ok {
				continue
			}
			seen[dsf.Name] = struct{}{}
			out = append(out, dsf)
		}
	}
	return out
}

// ColumnNames returns the names of Columns.
func (m *Model) ColumnNames() []string {
	cols := m.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Column looks up a storage column by name.
func (m *Model) Column(name string) (*DataSourceField, bool) {
	for _, c := range m.Columns() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// PrimaryIdentifier returns the identifier formed by the primary key.
func (m *Model) PrimaryIdentifier() ModelIdentifier {
	return m.identifierFor(m.primaryKey)
}

// UniqueIdentifiers returns every identifier of the model: the primary key
// first, then single-field unique constraints, then compound ones.
func (m *Model) UniqueIdentifiers() []ModelIdentifier {
	out := []ModelIdentifier{m.PrimaryIdentifier()}
	for _, sf := range m.ScalarFields() {
		if sf.source.IsUnique && !sf.id {
			out = append(out, NewModelIdentifier(sf))
		}
	}
	for _, u := range m.uniques {
		out = append(out, m.identifierFor(u))
	}
	return out
}

// IdentifierFor finds the identifier of the model made of exactly the given
// field names, in any order. It is used to decide whether a filter singles
// out at most one record.
func (m *Model) IdentifierFor(names []string) (ModelIdentifier, bool) {
	for _, id := range m.UniqueIdentifiers() {
		if sameNames(id.Names(), names) {
			return id, true
		}
	}
	return ModelIdentifier{}, false
}

func (m *Model) identifierFor(names []string) ModelIdentifier {
	fields := make([]Field, 0, len(names))
	for _, n := range names {
		if f, ok := m.Field(n); ok {
			fields = append(fields, f)
		}
	}
	return NewModelIdentifier(fields...)
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, n := range a {
		set[n] = struct{}{}
	}
	for _, n := range b {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}
