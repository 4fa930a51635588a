package domain

import "context"

// Importer runs one import batch end to end and returns its summary.
type Importer interface {
	Run(ctx context.Context) (*RunSummary, error)
}

// Consolidator detects and (separately) executes duplicate consolidation.
// Detection is side-effect-free; execution is destructive and expects a
// report produced by Detect.
type Consolidator interface {
	Detect(ctx context.Context, key string) (*ConsolidationReport, error)
	Execute(ctx context.Context, report *ConsolidationReport) (*ConsolidationReport, error)
}
