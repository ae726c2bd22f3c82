// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// TypeIdentifier is the storage-level type of a scalar column.
type TypeIdentifier int

const (
	TypeString TypeIdentifier = iota
	TypeInt
	TypeFloat
	TypeBoolean
	TypeDateTime
	TypeUUID
	TypeJSON
	TypeEnum
)

// String returns the schema name of the type.
func (t TypeIdentifier) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBoolean:
		return "Boolean"
	case TypeDateTime:
		return "DateTime"
	case TypeUUID:
		return "UUID"
	case TypeJSON:
		return "Json"
	case TypeEnum:
		return "Enum"
	default:
		return fmt.Sprintf("TypeIdentifier(%d)", int(t))
	}
}

// TypeByName resolves a schema type name such as "Int" or "DateTime". Enum
// has no name of its own and is not resolved.
func TypeByName(name string) (TypeIdentifier, bool) {
	for t := TypeString; t < TypeEnum; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// CtyType maps the storage type onto the cty type system used for every value
// that flows through the engine. DateTime values are carried as RFC 3339
// strings and Json values as their encoded text.
func (t TypeIdentifier) CtyType() cty.Type {
	switch t {
	case TypeInt, TypeFloat:
		return cty.Number
	case TypeBoolean:
		return cty.Bool
	default:
		return cty.String
	}
}

// NullValue returns the typed null for this storage type. It is the
// placeholder for a column whose value the backend will generate.
func (t TypeIdentifier) NullValue() cty.Value {
	return cty.NullVal(t.CtyType())
}
