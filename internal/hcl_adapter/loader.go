package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/querycore/internal/config"
	"github.com/specialistvlad/querycore/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load orchestrates the entire HCL configuration loading process. It is
// agnostic to the origin of the paths and parses any valid block from any file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	cfg := config.Default()

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	var datasources, executors, transactions int
	seenModels := make(map[string]string)

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, ds := range root.Datasources {
			if datasources++; datasources > 1 {
				return nil, fmt.Errorf("in %s: datasource block defined more than once", file)
			}
			if err := l.translateDatasource(ds, &cfg.Datasource); err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
		}
		for _, ex := range root.Executors {
			if executors++; executors > 1 {
				return nil, fmt.Errorf("in %s: executor block defined more than once", file)
			}
			l.translateExecutor(ex, &cfg.Executor)
		}
		for _, tx := range root.Transactions {
			if transactions++; transactions > 1 {
				return nil, fmt.Errorf("in %s: transactions block defined more than once", file)
			}
			if err := l.translateTransactions(tx, &cfg.Transactions); err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
		}
		for _, m := range root.Models {
			if prev, dup := seenModels[m.Name]; dup {
				return nil, fmt.Errorf("in %s: model %q already defined in %s", file, m.Name, prev)
			}
			seenModels[m.Name] = file

			def, err := l.translateModel(ctx, m)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			cfg.Models = append(cfg.Models, def)
		}
	}

	logger.Debug("HCL loading complete.",
		"provider", cfg.Datasource.Provider,
		"models", len(cfg.Models),
	)
	return cfg, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
