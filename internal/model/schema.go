// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import (
	"fmt"
)

// Schema is the validated, read-only data model shared by every request. A
// *Schema is safe for concurrent use once NewSchema has returned.
type Schema struct {
	models []*Model
	byName map[string]*Model
}

// NewSchema links the given models into a schema: fields get their owning
// model, relation fields get their related model and foreign key columns.
// Every returned error wraps ErrInvalidSchema.
func NewSchema(models ...*Model) (*Schema, error) {
	s := &Schema{byName: make(map[string]*Model, len(models))}
	for _, m := range models {
		if _, dup := s.byName[m.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate model %q", ErrInvalidSchema, m.Name)
		}
		s.byName[m.Name] = m
		s.models = append(s.models, m)
		m.schema = s
	}

	for _, m := range s.models {
		if err := s.link(m); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Schema) link(m *Model) error {
	seen := make(map[string]struct{}, len(m.fields))
	for _, f := range m.fields {
		if _, dup := seen[f.Name()]; dup {
			return fmt.Errorf("%w: duplicate field %q on model %q", ErrInvalidSchema, f.Name(), m.Name)
		}
		seen[f.Name()] = struct{}{}

		switch f := f.(type) {
		case *ScalarField:
			f.model = m
		case *RelationField:
			f.model = m
			related, ok := s.byName[f.RelatedName]
			if !ok {
				return fmt.Errorf("%w: relation %s.%s points at unknown model %q", ErrInvalidSchema, m.Name, f.name, f.RelatedName)
			}
			f.related = related
			if err := linkForeignKey(m, f); err != nil {
				return err
			}
		}
	}

	if len(m.primaryKey) == 0 {
		return fmt.Errorf("%w: model %q has no primary key", ErrInvalidSchema, m.Name)
	}
	for _, names := range append([][]string{m.primaryKey}, m.uniques...) {
		for _, n := range names {
			if _, ok := m.Field(n); !ok {
				return fmt.Errorf("%w: %w", ErrInvalidSchema, &FieldNotFoundError{Name: n, Model: m.Name})
			}
		}
	}
	return nil
}

func linkForeignKey(m *Model, f *RelationField) error {
	if !f.IsInlined() {
		return nil
	}
	if len(f.references) == 0 {
		f.references = f.related.primaryKey
	}
	if len(f.references) != len(f.fkColumns) {
		return fmt.Errorf("%w: relation %s.%s has %d columns for %d references",
			ErrInvalidSchema, m.Name, f.name, len(f.fkColumns), len(f.references))
	}

	f.sources = make([]*DataSourceField, len(f.fkColumns))
	for i, col := range f.fkColumns {
		ref, ok := f.related.ScalarField(f.references[i])
		if !ok {
			return fmt.Errorf("%w: %w", ErrInvalidSchema, &FieldNotFoundError{Name: f.references[i], Model: f.related.Name})
		}
		if own := scalarByColumn(m, col); own != nil {
			f.sources[i] = own.source
			continue
		}
		f.sources[i] = &DataSourceField{Name: col, Type: ref.Type, IsRequired: f.required}
	}
	return nil
}

func scalarByColumn(m *Model, column string) *ScalarField {
	for _, sf := range m.ScalarFields() {
		if sf.source.Name == column {
			return sf
		}
	}
	return nil
}

// Model returns the model with the given name.
func (s *Schema) Model(name string) (*Model, error) {
	m, ok := s.byName[name]
	if !ok {
		return nil, &ModelNotFoundError{Name: name}
	}
	return m, nil
}

// Models returns all models in registration order.
func (s *Schema) Models() []*Model {
	return s.models
}
