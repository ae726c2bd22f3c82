// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import "github.com/zclconf/go-cty/cty"

// DataSourceField is a single storage column. Scalar fields own exactly one,
// inlined relation fields own one per foreign key column. Pointers to a
// DataSourceField are shared between a scalar field and a relation field that
// map onto the same column.
type DataSourceField struct {
	Name          string
	Type          TypeIdentifier
	IsRequired    bool
	IsUnique      bool
	AutoGenerated bool
}

// Field is either a *ScalarField or a *RelationField. The set is closed: the
// unexported marker keeps other packages from adding variants, so a type
// switch over the two cases is exhaustive.
type Field interface {
	Name() string
	IsList() bool
	IsRequired() bool
	IsScalar() bool
	// DataSourceFields returns the storage columns implementing the field.
	DataSourceFields() []*DataSourceField
	// Model returns the model the field belongs to. It is nil until the field
	// has been linked into a Schema.
	Model() *Model

	field()
}

// Attribute configures a field at construction time.
type Attribute func(*attributes)

type attributes struct {
	id            bool
	required      bool
	list          bool
	unique        bool
	autoGenerated bool
	column        string
	fkColumns     []string
	references    []string
	def           *cty.Value
}

// ID marks a scalar field as (part of) the model's primary key.
func ID() Attribute { return func(a *attributes) { a.id = true; a.required = true } }

// Required marks the field as mandatory.
func Required() Attribute { return func(a *attributes) { a.required = true } }

// List marks the field as holding many values.
func List() Attribute { return func(a *attributes) { a.list = true } }

// Unique adds a single-field unique constraint.
func Unique() Attribute { return func(a *attributes) { a.unique = true } }

// AutoGenerated marks the column as filled in by the backend on insert
// (autoincrement integers, generated UUIDs).
func AutoGenerated() Attribute { return func(a *attributes) { a.autoGenerated = true } }

// Default gives a scalar field a static value used when a create leaves the
// field out.
func Default(v cty.Value) Attribute { return func(a *attributes) { a.def = &v } }

// MappedTo sets the storage column name of a scalar field.
func MappedTo(column string) Attribute { return func(a *attributes) { a.column = column } }

// Inline stores the relation as foreign key columns on this side. The
// columns reference the given fields of the related model, positionally. When
// no references are given, the related model's primary key is used.
func Inline(columns []string, references ...string) Attribute {
	return func(a *attributes) {
		a.fkColumns = columns
		a.references = references
	}
}

func collect(attrs []Attribute) attributes {
	var a attributes
	for _, apply := range attrs {
		apply(&a)
	}
	return a
}

// ScalarField is a field backed by exactly one storage column.
type ScalarField struct {
	name   string
	Type   TypeIdentifier
	list   bool
	id     bool
	def    *cty.Value
	source *DataSourceField
	model  *Model
}

// Scalar creates a scalar field.
func Scalar(name string, typ TypeIdentifier, attrs ...Attribute) *ScalarField {
	a := collect(attrs)
	column := name
	if a.column != "" {
		column = a.column
	}
	return &ScalarField{
		name: name,
		Type: typ,
		list: a.list,
		id:   a.id,
		def:  a.def,
		source: &DataSourceField{
			Name:          column,
			Type:          typ,
			IsRequired:    a.required,
			IsUnique:      a.unique || a.id,
			AutoGenerated: a.autoGenerated,
		},
	}
}

func (f *ScalarField) Name() string { return f.name }
func (f *ScalarField) IsList() bool { return f.list }
func (f *ScalarField) IsRequired() bool { return f.source.IsRequired }
func (f *ScalarField) IsScalar() bool { return true }
func (f *ScalarField) Model() *Model { return f.model }
func (f *ScalarField) IsAutoGenerated() bool { return f.source.AutoGenerated }

// Default returns the static default value, if the field has one.
func (f *ScalarField) Default() (cty.Value, bool) {
	if f.def == nil {
		return cty.NilVal, false
	}
	return *f.def, true
}

// DataSourceField returns the single column backing the field.
func (f *ScalarField) DataSourceField() *DataSourceField { return f.source }

func (f *ScalarField) DataSourceFields() []*DataSourceField {
	return []*DataSourceField{f.source}
}

func (f *ScalarField) field() {}

// RelationField connects two models. It is inlined when this side stores the
// foreign key columns; otherwise the key lives on the opposite relation field.
type RelationField struct {
	name         string
	RelationName string
	RelatedName  string
	list         bool
	required     bool
	fkColumns    []string
	references   []string
	sources      []*DataSourceField
	model        *Model
	related      *Model
}

// Relation creates a relation field named name, belonging to the relation
// relationName and pointing at the model called relatedModel.
func Relation(name, relationName, relatedModel string, attrs ...Attribute) *RelationField {
	a := collect(attrs)
	return &RelationField{
		name:         name,
		RelationName: relationName,
		RelatedName:  relatedModel,
		list:         a.list,
		required:     a.required,
		fkColumns:    a.fkColumns,
		references:   a.references,
	}
}

func (f *RelationField) Name() string { return f.name }
func (f *RelationField) IsList() bool { return f.list }
func (f *RelationField) IsRequired() bool { return f.required }
func (f *RelationField) IsScalar() bool { return false }
func (f *RelationField) Model() *Model { return f.model }

func (f *RelationField) DataSourceFields() []*DataSourceField { return f.sources }

// IsInlined reports whether this side holds the foreign key columns.
func (f *RelationField) IsInlined() bool { return len(f.fkColumns) > 0 }

// RelatedModel returns the model on the other end of the relation.
func (f *RelationField) RelatedModel() *Model { return f.related }

// References returns the fields of the related model the foreign key columns
// point at, in column order. Empty when the relation is not inlined here.
func (f *RelationField) References() []*ScalarField {
	if !f.IsInlined() || f.related == nil {
		return nil
	}
	out := make([]*ScalarField, 0, len(f.references))
	for _, name := range f.references {
		if sf, ok := f.related.ScalarField(name); ok {
			out = append(out, sf)
		}
	}
	return out
}

// Opposite returns the back-relation on the related model.
func (f *RelationField) Opposite() (*RelationField, bool) {
	if f.related == nil {
		return nil, false
	}
	for _, candidate := range f.related.RelationFields() {
		if candidate.RelationName != f.RelationName {
			continue
		}
		if candidate == f {
			continue
		}
		return candidate, true
	}
	return nil, false
}

func (f *RelationField) field() {}
