package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/querycore/internal/config"
	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/connector/boltconnector"
	"github.com/specialistvlad/querycore/internal/connector/memconnector"
	"github.com/specialistvlad/querycore/internal/connector/sqlconnector"
	"github.com/specialistvlad/querycore/internal/ctxlog"
)

// openConnector opens the backend the datasource names. The returned close
// function releases it.
func openConnector(ctx context.Context, ds config.Datasource) (connector.Connector, func() error, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Opening datasource.", "provider", ds.Provider, "pool_size", ds.PoolSize)

	noop := func() error { return nil }
	switch ds.Provider {
	case config.ProviderMemory, "":
		return memconnector.New(memconnector.WithPoolSize(ds.PoolSize)), noop, nil
	case config.ProviderBolt:
		c, err := boltconnector.Open(ds.URL, boltconnector.WithPoolSize(ds.PoolSize))
		if err != nil {
			return nil, nil, fmt.Errorf("opening bolt datasource: %w", err)
		}
		return c, c.Close, nil
	case config.ProviderMySQL:
		c, err := sqlconnector.Open(ds.URL, sqlconnector.WithPoolSize(ds.PoolSize))
		if err != nil {
			return nil, nil, fmt.Errorf("opening mysql datasource: %w", err)
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown datasource provider %q", ds.Provider)
	}
}
