// This file contains the logic for translating the decoded HCL blocks into
// the format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/specialistvlad/querycore/internal/config"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"github.com/specialistvlad/querycore/internal/model"
)

func (l *Loader) translateDatasource(b *datasourceBlock, into *config.Datasource) error {
	switch b.Provider {
	case config.ProviderMemory:
	case config.ProviderBolt, config.ProviderMySQL:
		if b.URL == nil || *b.URL == "" {
			return fmt.Errorf("datasource provider %q requires a url", b.Provider)
		}
	default:
		return fmt.Errorf("unknown datasource provider %q", b.Provider)
	}

	into.Provider = b.Provider
	if b.URL != nil {
		into.URL = *b.URL
	}
	if b.PoolSize != nil {
		if *b.PoolSize < 1 {
			return fmt.Errorf("pool_size must be at least 1, got %d", *b.PoolSize)
		}
		into.PoolSize = *b.PoolSize
	}
	return nil
}

func (l *Loader) translateExecutor(b *executorBlock, into *config.Executor) {
	if b.MaxDepth != nil {
		into.MaxDepth = *b.MaxDepth
	}
	if b.BatchConcurrency != nil {
		into.BatchConcurrency = *b.BatchConcurrency
	}
}

func (l *Loader) translateTransactions(b *transactionsBlock, into *config.Transactions) error {
	if err := parseDuration("max_acquisition", b.MaxAcquisition, &into.MaxAcquisition); err != nil {
		return err
	}
	return parseDuration("valid_for", b.ValidFor, &into.ValidFor)
}

// translateModel converts the HCL-specific model schema into the agnostic model.
func (l *Loader) translateModel(ctx context.Context, b *modelBlock) (*config.ModelDefinition, error) {
	logger := ctxlog.FromContext(ctx).With("model", b.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL model to internal config model.")

	def := &config.ModelDefinition{Name: b.Name, ID: b.ID}
	for _, u := range b.Uniques {
		def.Uniques = append(def.Uniques, u.Fields)
	}
	for _, f := range b.Fields {
		fd, err := l.translateField(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("in model '%s', field '%s': %w", b.Name, f.Name, err)
		}
		def.Fields = append(def.Fields, fd)
	}
	return def, nil
}

func (l *Loader) translateField(ctx context.Context, b *fieldBlock) (*config.FieldDefinition, error) {
	ref, err := typeExprToRef(ctx, b.Type)
	if err != nil {
		return nil, err
	}

	fd := &config.FieldDefinition{
		Name:       b.Name,
		Type:       ref.Name,
		List:       ref.List,
		Optional:   ref.Optional,
		ID:         b.ID,
		Unique:     b.Unique,
		Column:     b.Map,
		Relation:   b.Relation,
		Fields:     b.Fields,
		References: b.References,
	}

	if isExprDefined(ctx, b.Default, "default") {
		typ, scalar := model.TypeByName(ref.Name)
		if !scalar {
			return nil, fmt.Errorf("relation fields cannot have a default")
		}
		fd.AutoGenerated, fd.Default, err = translateDefault(b.Default, typ)
		if err != nil {
			return nil, err
		}
	}
	return fd, nil
}
