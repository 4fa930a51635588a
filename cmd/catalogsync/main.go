package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kitmed/catalogsync/internal/catalog"
	"github.com/kitmed/catalogsync/internal/config"
	"github.com/kitmed/catalogsync/internal/logger"
	"github.com/kitmed/catalogsync/internal/metrics"
	"github.com/kitmed/catalogsync/internal/migration"
	"github.com/kitmed/catalogsync/internal/pipeline"
	"github.com/kitmed/catalogsync/internal/pipeline/domain"
	"github.com/kitmed/catalogsync/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		metrics.Module,

		catalog.Module,
		pipeline.Module,

		fx.Invoke(RunImport),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// RunImport drives one import batch and shuts the app down when it finishes.
func RunImport(lc fx.Lifecycle, shutdowner fx.Shutdowner, importer domain.Importer, cfg config.Config, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.ImportFile == "" {
				return fmt.Errorf("IMPORT_FILE is required")
			}
			go func() {
				summary, err := importer.Run(context.Background())
				if err != nil {
					log.Error("import run failed", zap.Error(err))
				}
				if summary != nil {
					printSummary(summary)
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
	})
}

func printSummary(s *domain.RunSummary) {
	fmt.Printf("run %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Printf("  processed: %d\n", s.TotalProcessed)
	fmt.Printf("  created:   %d\n", s.Counts[domain.OutcomeCreated])
	fmt.Printf("  updated:   %d\n", s.Counts[domain.OutcomeUpdated])
	fmt.Printf("  skipped:   %d (duplicate %d, no match %d, no sku %d)\n",
		s.Counts[domain.OutcomeSkippedDuplicate]+s.Counts[domain.OutcomeSkippedNoMatch]+s.Counts[domain.OutcomeSkippedNoSKU],
		s.Counts[domain.OutcomeSkippedDuplicate],
		s.Counts[domain.OutcomeSkippedNoMatch],
		s.Counts[domain.OutcomeSkippedNoSKU])
	fmt.Printf("  errors:    %d\n", s.Counts[domain.OutcomeError])
	fmt.Printf("  media:     %d downloaded, %d reused, %d failed\n",
		s.Media.Downloaded, s.Media.Reused, s.Media.Failed)
	for _, p := range s.Problems {
		fmt.Printf("  row %d (%s): %s\n", p.Row, p.Reference, p.Reason)
	}
}
