// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the read-only, validated data model the execution
// core works against. It is the Go shape of the schema a client request was
// validated with: models, their fields, and the identifiers that single out
// one record of a model.
//
// # Core Concepts
//
//   - DataSourceField: one storage column. Everything that eventually reaches a
//     backend is expressed in terms of these columns.
//
//   - Field: a closed sum over *ScalarField and *RelationField. A scalar field
//     is backed by exactly one column, a relation field by zero (the foreign key
//     lives on the other side) or more columns (an inlined foreign key).
//
//   - ModelIdentifier: an ordered set of fields that together identify a
//     record, e.g. the primary key or a compound unique constraint. A model may
//     have several; they are independent of each other.
//
//   - Schema: the collection of models, linked so relation fields can resolve
//     their related model and their back-relation. A *Schema is the
//     QuerySchemaRef passed into the executor; it is never mutated after
//     NewSchema returns.
//
// Building a schema is the job of an upstream collaborator (the schema
// language parser). This package only validates that relations point at
// existing models and that identifiers reference existing fields.
package model
