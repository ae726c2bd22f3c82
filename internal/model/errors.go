// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidSchema is wrapped by every error NewSchema returns.
var ErrInvalidSchema = errors.New("invalid schema")

// FieldNotFoundError is returned when a named field or column is not part of
// a model or of a record's known field list.
type FieldNotFoundError struct {
	Name  string
	Model string
}

func (e *FieldNotFoundError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("field %q not found", e.Name)
	}
	return fmt.Sprintf("field %q not found on model %q", e.Name, e.Model)
}

// ModelNotFoundError is returned by Schema.Model for unknown model names.
type ModelNotFoundError struct {
	Name string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %q not found in schema", e.Name)
}
