package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/kitmed/catalogsync/internal/pipeline/domain"
	"go.uber.org/zap"
)

// Reporter accumulates per-record outcomes for one run and renders the final
// summary. Outcomes are kept in input order so problems can be correlated back
// to the source file.
type Reporter struct {
	runID     string
	startedAt time.Time
	outcomes  []domain.ImportOutcome
	problems  []domain.RecordProblem
	log       *zap.Logger
}

func New(log *zap.Logger) *Reporter {
	return &Reporter{
		runID:     uuid.NewString(),
		startedAt: time.Now(),
		log:       log.Named("report"),
	}
}

func (r *Reporter) RunID() string { return r.runID }

func (r *Reporter) Record(outcome domain.ImportOutcome) {
	r.outcomes = append(r.outcomes, outcome)

	switch outcome.Kind {
	case domain.OutcomeError, domain.OutcomeSkippedNoMatch, domain.OutcomeSkippedNoSKU:
		r.problems = append(r.problems, domain.RecordProblem{
			Row:       outcome.Row,
			Reference: outcome.Reference,
			Reason:    outcome.Reason,
		})
		r.log.Warn("record not imported",
			zap.Int("row", outcome.Row),
			zap.String("reference", outcome.Reference),
			zap.String("kind", string(outcome.Kind)),
			zap.String("reason", outcome.Reason))
	case domain.OutcomeSkippedDuplicate:
		r.log.Info("record skipped",
			zap.Int("row", outcome.Row),
			zap.String("reference", outcome.Reference),
			zap.String("reason", outcome.Reason))
	}
}

// Problem attributes a non-fatal failure, such as a lost media download, to a
// record without changing the record's outcome.
func (r *Reporter) Problem(row int, reference, reason string) {
	r.problems = append(r.problems, domain.RecordProblem{
		Row:       row,
		Reference: reference,
		Reason:    reason,
	})
}

// Summarize closes the run and returns its summary. Problems cover every
// outcome an operator has to act on, in input order.
func (r *Reporter) Summarize(media domain.MediaStats) *domain.RunSummary {
	summary := &domain.RunSummary{
		RunID:          r.runID,
		StartedAt:      r.startedAt,
		Duration:       time.Since(r.startedAt),
		TotalProcessed: len(r.outcomes),
		Counts:         map[domain.OutcomeKind]int{},
		Problems:       r.problems,
		Media:          media,
	}

	for _, o := range r.outcomes {
		summary.Counts[o.Kind]++
	}

	r.log.Info("run finished",
		zap.String("run_id", summary.RunID),
		zap.Duration("duration", summary.Duration),
		zap.Int("total", summary.TotalProcessed),
		zap.Int("created", summary.Counts[domain.OutcomeCreated]),
		zap.Int("updated", summary.Counts[domain.OutcomeUpdated]),
		zap.Int("errors", summary.Counts[domain.OutcomeError]),
		zap.Int("media_downloaded", media.Downloaded),
		zap.Int("media_reused", media.Reused),
		zap.Int("media_failed", media.Failed))

	return summary
}
