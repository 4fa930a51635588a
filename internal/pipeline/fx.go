package pipeline

import (
	"github.com/kitmed/catalogsync/internal/config"
	"github.com/kitmed/catalogsync/internal/pipeline/media"
	"github.com/kitmed/catalogsync/internal/pipeline/merge"
	"github.com/kitmed/catalogsync/internal/pipeline/normalizer"
	"github.com/kitmed/catalogsync/internal/pipeline/resolver"
	"github.com/kitmed/catalogsync/internal/pipeline/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pipeline",
	fx.Provide(
		func(cfg config.Config) *normalizer.Normalizer {
			return normalizer.New(cfg.PrimaryLocale, cfg.MaxImagesPerRecord)
		},
		resolver.New,
		media.NewDirStoreFromConfig,
		media.NewReconciler,
		merge.New,
		service.New,
		service.NewConsolidator,
	),
)
