package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/querycore/internal/config"
	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"github.com/specialistvlad/querycore/internal/executor"
	"github.com/specialistvlad/querycore/internal/interpreter"
	"github.com/specialistvlad/querycore/internal/model"
	"go.uber.org/multierr"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	appConfig  *Config
	config     *config.Model
	schema     *model.Schema
	connector  connector.Connector
	closeConn  func() error
	executor   *executor.InterpretingExecutor
	registry   *prometheus.Registry
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and metrics registry.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) (*App, error) {
	logger, err := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	if err != nil {
		return nil, err
	}
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	schema, err := config.BuildSchema(cfgModel.Models)
	if err != nil {
		return nil, err
	}
	logger.Debug("Schema built.", "models", len(schema.Models()))

	conn, closeConn, err := openConnector(ctx, cfgModel.Datasource)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	opts := []executor.Option{
		executor.WithRegisterer(registry),
		executor.WithBatchConcurrency(cfgModel.Executor.BatchConcurrency),
		executor.WithDefaultValidFor(cfgModel.Transactions.ValidFor),
		executor.WithAcquisitionTimeout(cfgModel.Transactions.MaxAcquisition),
	}
	if cfgModel.Executor.MaxDepth > 0 {
		opts = append(opts, executor.WithInterpreterOptions(interpreter.WithMaxDepth(cfgModel.Executor.MaxDepth)))
	}
	exec := executor.New(ctx, conn, opts...)
	logger.Info("Executor ready.", "connector", conn.Name())

	return &App{
		outW:      outW,
		logger:    logger,
		appConfig: appConfig,
		config:    cfgModel,
		schema:    schema,
		connector: conn,
		closeConn: closeConn,
		executor:  exec,
		registry:  registry,
	}, nil
}

// Executor returns the application's executor. This is primarily for testing.
func (a *App) Executor() *executor.InterpretingExecutor {
	return a.executor
}

// Schema returns the schema built from the configuration.
func (a *App) Schema() *model.Schema {
	return a.schema
}

// Close rolls back open transactions and releases the datasource.
func (a *App) Close(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("Closing application.")
	return multierr.Combine(
		a.executor.Close(ctx),
		a.closeConn(),
	)
}
