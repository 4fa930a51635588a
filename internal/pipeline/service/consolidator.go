package service

import (
	"context"

	"github.com/kitmed/catalogsync/internal/pipeline/domain"
	"github.com/kitmed/catalogsync/internal/pipeline/merge"
)

type consolidator struct {
	engine *merge.Engine
}

// NewConsolidator exposes duplicate detection and execution as the two-step
// flow the consolidate binary drives.
func NewConsolidator(engine *merge.Engine) domain.Consolidator {
	return &consolidator{engine: engine}
}

func (c *consolidator) Detect(ctx context.Context, strategy string) (*domain.ConsolidationReport, error) {
	return c.engine.DetectDuplicates(ctx, strategy)
}

func (c *consolidator) Execute(ctx context.Context, report *domain.ConsolidationReport) (*domain.ConsolidationReport, error) {
	return c.engine.Consolidate(ctx, report)
}
