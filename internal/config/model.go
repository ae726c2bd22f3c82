package config

import (
	"time"

	"github.com/zclconf/go-cty/cty"
)

// Datasource providers understood by the application.
const (
	ProviderMemory = "memory"
	ProviderBolt   = "bolt"
	ProviderMySQL  = "mysql"
)

// Model is the unified, format-agnostic representation of the entire
// engine configuration.
type Model struct {
	Datasource   Datasource
	Executor     Executor
	Transactions Transactions
	Models       []*ModelDefinition
}

// Datasource selects and configures the storage backend.
type Datasource struct {
	Provider string
	// URL is the database file for bolt and the DSN for mysql. The memory
	// provider ignores it.
	URL      string
	PoolSize int64
}

// Executor tunes request execution.
type Executor struct {
	// MaxDepth bounds expression nesting. Zero keeps the interpreter's own
	// limit.
	MaxDepth         int
	BatchConcurrency int
}

// Transactions holds the defaults applied to interactive transactions.
type Transactions struct {
	MaxAcquisition time.Duration
	ValidFor       time.Duration
}

// ModelDefinition describes a single model of the data model.
type ModelDefinition struct {
	Name   string
	Fields []*FieldDefinition
	// ID names a compound primary key. Empty when the key is declared on
	// the fields themselves.
	ID      []string
	Uniques [][]string
}

// FieldDefinition describes a scalar or relation field. A field whose Type
// is not a scalar type name is a relation to the model of that name.
type FieldDefinition struct {
	Name     string
	Type     string
	List     bool
	Optional bool

	ID            bool
	Unique        bool
	AutoGenerated bool
	Default       *cty.Value
	Column        string

	// Relation names the relation. When empty, a name is derived from the
	// two model names.
	Relation   string
	Fields     []string
	References []string
}

// Default returns the configuration used when a source sets nothing: an
// in-memory datasource and no models.
func Default() *Model {
	return &Model{
		Datasource: Datasource{
			Provider: ProviderMemory,
			PoolSize: 10,
		},
		Executor: Executor{
			BatchConcurrency: 10,
		},
		Transactions: Transactions{
			MaxAcquisition: 2 * time.Second,
			ValidFor:       5 * time.Second,
		},
	}
}
