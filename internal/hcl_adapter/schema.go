package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Datasources  []*datasourceBlock   `hcl:"datasource,block"`
	Executors    []*executorBlock     `hcl:"executor,block"`
	Transactions []*transactionsBlock `hcl:"transactions,block"`
	Models       []*modelBlock        `hcl:"model,block"`
	Remain       hcl.Body             `hcl:",remain"`
}

type datasourceBlock struct {
	Provider string  `hcl:"provider"`
	URL      *string `hcl:"url,optional"`
	PoolSize *int64  `hcl:"pool_size,optional"`
}

type executorBlock struct {
	MaxDepth         *int `hcl:"max_depth,optional"`
	BatchConcurrency *int `hcl:"batch_concurrency,optional"`
}

type transactionsBlock struct {
	MaxAcquisition *string `hcl:"max_acquisition,optional"`
	ValidFor       *string `hcl:"valid_for,optional"`
}

type modelBlock struct {
	Name    string         `hcl:"name,label"`
	ID      []string       `hcl:"id,optional"`
	Fields  []*fieldBlock  `hcl:"field,block"`
	Uniques []*uniqueBlock `hcl:"unique,block"`
}

type uniqueBlock struct {
	Fields []string `hcl:"fields"`
}

type fieldBlock struct {
	Name       string         `hcl:"name,label"`
	Type       hcl.Expression `hcl:"type"`
	ID         bool           `hcl:"id,optional"`
	Unique     bool           `hcl:"unique,optional"`
	Default    hcl.Expression `hcl:"default,optional"`
	Map        string         `hcl:"map,optional"`
	Relation   string         `hcl:"relation,optional"`
	Fields     []string       `hcl:"fields,optional"`
	References []string       `hcl:"references,optional"`
}
