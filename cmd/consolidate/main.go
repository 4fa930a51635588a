package main

import (
	"context"
	"fmt"
	"strings"

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

		fx.Invoke(RunConsolidation),
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

// RunConsolidation detects duplicate products and, only when
// CONSOLIDATE_EXECUTE is set, merges them. The default is a dry run that
// prints what would happen.
func RunConsolidation(lc fx.Lifecycle, shutdowner fx.Shutdowner, consolidator domain.Consolidator, cfg config.Config, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				run(consolidator, cfg, log)
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
	})
}

func run(consolidator domain.Consolidator, cfg config.Config, log *zap.Logger) {
	ctx := context.Background()

	report, err := consolidator.Detect(ctx, cfg.ConsolidateStrategy)
	if err != nil {
		log.Error("duplicate detection failed", zap.Error(err))
		return
	}

	fmt.Printf("strategy %s: %d duplicate group(s)\n", report.Strategy, len(report.Groups))
	for _, g := range report.Groups {
		fmt.Printf("  canonical %d absorbs %d product(s) [%s]\n",
			g.CanonicalID, len(g.MemberIDs), strings.Join(g.References, ", "))
	}

	if len(report.Groups) == 0 {
		return
	}
	if !cfg.ConsolidateExecute {
		fmt.Println("dry run; set CONSOLIDATE_EXECUTE=true to apply")
		return
	}

	result, err := consolidator.Execute(ctx, report)
	if err != nil {
		log.Error("consolidation failed", zap.Error(err))
	}
	if result != nil {
		fmt.Printf("moved %d media asset(s), deleted %d product(s)\n",
			result.MediaMoved, result.ProductsDeleted)
	}
}
