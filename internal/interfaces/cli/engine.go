package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/orthoatlas/orthoatlas/internal/application/dataset"
	"github.com/orthoatlas/orthoatlas/internal/application/orthology"
	"github.com/orthoatlas/orthoatlas/internal/application/treesearch"
	"github.com/orthoatlas/orthoatlas/internal/config"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/datasource"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
)

// Engine bundles the application services a query command needs. Commands
// build one per invocation; the dataset loads lazily on first use.
type Engine struct {
	Data      *dataset.Service
	Tree      treesearch.Service
	Orthology orthology.Service
}

// openEngine constructs the engine from the resolved configuration. The
// dataset is not loaded yet; the first query (or an explicit Ensure) does
// that under the command's timeout.
func openEngine(cmd *cobra.Command) (*Engine, *CLIContext, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, err
	}

	src, err := newSource(cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}

	data := dataset.NewService(src, cliCtx.Config.Dataset, dataset.WithLogger(cliCtx.Logger))

	return &Engine{
		Data:      data,
		Tree:      treesearch.NewService(data, treesearch.WithLogger(cliCtx.Logger)),
		Orthology: orthology.NewService(data, orthology.WithLogger(cliCtx.Logger)),
	}, cliCtx, nil
}

// newSource selects the artifact source from configuration.
func newSource(cfg *config.Config, log logging.Logger) (datasource.Source, error) {
	switch cfg.DataSource.Kind {
	case "minio":
		return datasource.NewMinIOSource(cfg.MinIO, log)
	default:
		return datasource.NewFSSource(cfg.DataSource.Root, log), nil
	}
}

// queryContext derives the context a single command invocation runs under.
func queryContext(cmd *cobra.Command, cliCtx *CLIContext) (context.Context, context.CancelFunc) {
	if cliCtx.Timeout > 0 {
		return context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	}
	return context.WithCancel(cmd.Context())
}
