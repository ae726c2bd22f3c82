package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/specialistvlad/querycore/internal/ctxlog"
	"github.com/specialistvlad/querycore/internal/executor"
	"github.com/specialistvlad/querycore/internal/operation"
	"github.com/specialistvlad/querycore/internal/response"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// batchItem is one entry of a batch result document.
type batchItem struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Run executes the configured request and writes the JSON result to the
// app's output. A single operation outside a transactional batch prints its
// data; batches print one entry per operation, in order.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.appConfig.HealthcheckPort > 0 {
		if err := a.startHealthcheckServer(ctx, a.appConfig.HealthcheckPort); err != nil {
			return err
		}
		defer a.closeHealthcheckServer(ctx)
	}

	if len(a.appConfig.Request) == 0 {
		a.logger.Warn("No operations requested, execution not required.")
		return nil
	}
	ops, err := operation.ParseJSON(a.appConfig.Request)
	if err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	if len(ops) == 1 && !a.appConfig.Transactional {
		data, err := a.executor.Execute(ctx, executor.NoTx, ops[0], a.schema)
		if err != nil {
			return fmt.Errorf("execution failed: %w", err)
		}
		out, err := renderJSON(data)
		if err != nil {
			return err
		}
		return a.write(out)
	}

	a.logger.Info("Executing batch.", "operations", len(ops), "transactional", a.appConfig.Transactional)
	results, batchErr := a.executor.ExecuteAll(ctx, executor.NoTx, ops, a.appConfig.Transactional, a.schema)
	items := make([]batchItem, len(results))
	for i, r := range results {
		if r.Err != nil {
			items[i].Error = r.Err.Error()
			continue
		}
		if items[i].Data, err = renderJSON(r.Data); err != nil {
			return err
		}
	}
	out, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := a.write(out); err != nil {
		return err
	}
	if batchErr != nil {
		return fmt.Errorf("execution failed: %w", batchErr)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) write(out []byte) error {
	_, err := fmt.Fprintln(a.outW, string(out))
	return err
}

func renderJSON(data *response.ResponseData) (json.RawMessage, error) {
	v := data.ToCty()
	out, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, fmt.Errorf("rendering result: %w", err)
	}
	return out, nil
}
