package catalog

import (
	"github.com/kitmed/catalogsync/internal/catalog/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.store",
	fx.Provide(repository.Provide),
)
