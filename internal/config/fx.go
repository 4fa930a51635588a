package config

import (
	"github.com/kitmed/catalogsync/pkg/db"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(
		Load,
		ProvideMappings,
		func(cfg Config) db.Config { return cfg.DB },
	),
)
