package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	catalogdomain "github.com/kitmed/catalogsync/internal/catalog/domain"
	"github.com/kitmed/catalogsync/internal/config"
	"github.com/kitmed/catalogsync/internal/metrics"
	"github.com/kitmed/catalogsync/internal/pipeline/domain"
	"github.com/kitmed/catalogsync/internal/pipeline/media"
	"github.com/kitmed/catalogsync/internal/pipeline/merge"
	"github.com/kitmed/catalogsync/internal/pipeline/normalizer"
	"github.com/kitmed/catalogsync/internal/pipeline/report"
	"github.com/kitmed/catalogsync/internal/pipeline/resolver"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config     config.Config
	Normalizer *normalizer.Normalizer
	Resolver   *resolver.Resolver
	Reconciler *media.Reconciler
	MediaStore *media.DirStore
	Engine     *merge.Engine
	Metrics    *metrics.Metrics
	Log        *zap.Logger
}

// Service drives one import run: CSV in, normalized records through
// resolution, media reconciliation and merge, summary out. Records are
// processed one at a time; each completed record is durable before the next
// starts.
type Service struct {
	cfg        config.Config
	normalizer *normalizer.Normalizer
	resolver   *resolver.Resolver
	reconciler *media.Reconciler
	mediaStore *media.DirStore
	engine     *merge.Engine
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func New(p Params) domain.Importer {
	return &Service{
		cfg:        p.Config,
		normalizer: p.Normalizer,
		resolver:   p.Resolver,
		reconciler: p.Reconciler,
		mediaStore: p.MediaStore,
		engine:     p.Engine,
		metrics:    p.Metrics,
		log:        p.Log.Named("import"),
	}
}

func (s *Service) Run(ctx context.Context) (*domain.RunSummary, error) {
	f, err := os.Open(s.cfg.ImportFile)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	rows, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.cfg.ImportFile, err)
	}

	run, err := media.NewRunContext(s.mediaStore)
	if err != nil {
		return nil, fmt.Errorf("prepare media store: %w", err)
	}

	reporter := report.New(s.log)
	s.log.Info("run started",
		zap.String("run_id", reporter.RunID()),
		zap.String("file", s.cfg.ImportFile),
		zap.Int("rows", len(rows)))

	seen := map[string]bool{}
	consecutiveStoreErrors := 0
	var runErr error

	for i, row := range rows {
		if i > 0 && s.cfg.DownloadDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.DownloadDelay):
			}
		}
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}

		outcome := s.process(ctx, run, reporter, seen, row)
		reporter.Record(outcome.ImportOutcome)
		s.metrics.RecordsProcessed.WithLabelValues(string(outcome.Kind)).Inc()

		if outcome.Kind == domain.OutcomeError && outcome.persistence {
			consecutiveStoreErrors++
			if consecutiveStoreErrors >= s.cfg.MaxConsecutiveStoreErrors {
				runErr = fmt.Errorf("aborting after %d consecutive store failures", consecutiveStoreErrors)
				break
			}
		} else {
			consecutiveStoreErrors = 0
		}
	}

	stats := run.Stats()
	s.metrics.MediaDownloaded.Add(float64(stats.Downloaded))
	s.metrics.MediaReused.Add(float64(stats.Reused))
	s.metrics.MediaFailed.Add(float64(stats.Failed))

	return reporter.Summarize(stats), runErr
}

// recordOutcome augments the reported outcome with whether the failure was a
// store write, the only failure class that can abort a run.
type recordOutcome struct {
	domain.ImportOutcome
	persistence bool
}

func (s *Service) process(ctx context.Context, run *media.RunContext, reporter *report.Reporter, seen map[string]bool, row domain.RawRow) recordOutcome {
	record, err := s.normalizer.Normalize(row)
	if err != nil {
		return recordOutcome{ImportOutcome: domain.ImportOutcome{
			Kind: domain.OutcomeError, Row: row.Row, Reason: err.Error(),
		}}
	}

	if record.SupplierSKU == "" {
		return recordOutcome{ImportOutcome: domain.ImportOutcome{
			Kind:      domain.OutcomeSkippedNoSKU,
			Row:       record.Row,
			Reference: record.Identifier(),
			Reason:    "no supplier reference found in row or product name",
		}}
	}

	manufacturer, err := s.resolver.ResolveManufacturer(ctx, record.ManufacturerRaw)
	if err != nil {
		var rerr *domain.ResolutionError
		if errors.As(err, &rerr) {
			return recordOutcome{ImportOutcome: domain.ImportOutcome{
				Kind:      domain.OutcomeSkippedNoMatch,
				Row:       record.Row,
				Reference: record.SupplierSKU,
				Reason:    err.Error(),
			}}
		}
		return recordOutcome{ImportOutcome: domain.ImportOutcome{
			Kind: domain.OutcomeError, Row: record.Row, Reference: record.SupplierSKU, Reason: err.Error(),
		}}
	}

	key := catalogdomain.NormalizeReference(record.SupplierSKU) + "|" + fmt.Sprint(manufacturer.ID)
	if seen[key] {
		return recordOutcome{ImportOutcome: domain.ImportOutcome{
			Kind:      domain.OutcomeSkippedDuplicate,
			Row:       record.Row,
			Reference: record.SupplierSKU,
			Reason:    "same reference already processed in this run",
		}}
	}

	categoryID, err := s.resolver.ResolveCategory(ctx, record.CategoryRaw)
	if err != nil {
		return recordOutcome{ImportOutcome: domain.ImportOutcome{
			Kind: domain.OutcomeError, Row: record.Row, Reference: record.SupplierSKU, Reason: err.Error(),
		}}
	}

	match, rule, err := s.resolver.MatchProduct(ctx, record, manufacturer.ID)
	if err != nil {
		return recordOutcome{ImportOutcome: domain.ImportOutcome{
			Kind: domain.OutcomeError, Row: record.Row, Reference: record.SupplierSKU, Reason: err.Error(),
		}}
	}

	if match != nil && !s.cfg.UpdateExisting {
		seen[key] = true
		return recordOutcome{ImportOutcome: domain.ImportOutcome{
			Kind:      domain.OutcomeSkippedDuplicate,
			Row:       record.Row,
			Reference: record.SupplierSKU,
			ProductID: match.ID,
			Reason:    "already in catalog and updates are disabled",
		}}
	}

	// Media failures cost the record its assets, never the record itself.
	assets, mediaErrs := s.reconciler.Reconcile(ctx, run, record)
	for _, merr := range mediaErrs {
		reporter.Problem(record.Row, record.SupplierSKU, merr.Error())
	}

	outcome, err := s.engine.Upsert(ctx, record, match, rule, manufacturer.ID, categoryID, assets)
	if err != nil {
		var perr *domain.PersistenceError
		return recordOutcome{
			ImportOutcome: domain.ImportOutcome{
				Kind: domain.OutcomeError, Row: record.Row, Reference: record.SupplierSKU, Reason: err.Error(),
			},
			persistence: errors.As(err, &perr),
		}
	}
	// Marked seen only now: a failed row must not shadow a later retry of the
	// same reference within the file.
	seen[key] = true
	return recordOutcome{ImportOutcome: outcome}
}
