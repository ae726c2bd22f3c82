// Package config defines the format-agnostic configuration model of the
// engine, along with the Loader interface for reading it from various
// sources.
//
// A configuration describes two things:
//
//  1. The environment: which datasource backs the engine (in-memory, bbolt
//     file or MySQL), how the executor fans out batches and how long
//     transactions may wait for and hold a connection.
//  2. The data model: the models, their scalar and relation fields, keys and
//     unique constraints. BuildSchema turns these definitions into the
//     validated *model.Schema every request is built against.
//
// Concrete loaders, such as the HCL one, live in separate packages and only
// produce a *Model; they never construct runtime objects themselves.
package config
