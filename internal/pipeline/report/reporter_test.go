package report

import (
	"testing"

	"github.com/kitmed/catalogsync/internal/pipeline/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSummarizeCountsAndProblems(t *testing.T) {
	r := New(zap.NewNop())

	r.Record(domain.ImportOutcome{Kind: domain.OutcomeCreated, Row: 2, Reference: "VRS-19"})
	r.Record(domain.ImportOutcome{Kind: domain.OutcomeSkippedNoMatch, Row: 3, Reference: "TR-17", Reason: `unresolved manufacturer "Unknown Corp"`})
	r.Record(domain.ImportOutcome{Kind: domain.OutcomeUpdated, Row: 4, Reference: "SP-150"})
	r.Problem(4, "SP-150", "download https://cdn.example.com/sp150.jpg: unexpected status 404")
	r.Record(domain.ImportOutcome{Kind: domain.OutcomeError, Row: 5, Reference: "XX-01", Reason: "store create: disk full"})
	r.Record(domain.ImportOutcome{Kind: domain.OutcomeSkippedDuplicate, Row: 6, Reference: "VRS-19"})

	summary := r.Summarize(domain.MediaStats{Downloaded: 3, Reused: 1, Failed: 2})

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 5, summary.TotalProcessed)
	assert.Equal(t, 1, summary.Counts[domain.OutcomeCreated])
	assert.Equal(t, 1, summary.Counts[domain.OutcomeUpdated])
	assert.Equal(t, 1, summary.Counts[domain.OutcomeSkippedNoMatch])
	assert.Equal(t, 1, summary.Counts[domain.OutcomeSkippedDuplicate])
	assert.Equal(t, 1, summary.Counts[domain.OutcomeError])

	// Problems stay in event order; duplicates are informational, not problems.
	require.Len(t, summary.Problems, 3)
	assert.Equal(t, 3, summary.Problems[0].Row)
	assert.Equal(t, 4, summary.Problems[1].Row)
	assert.Equal(t, 5, summary.Problems[2].Row)

	assert.Equal(t, 3, summary.Media.Downloaded)
	assert.Equal(t, 1, summary.Media.Reused)
	assert.Equal(t, 2, summary.Media.Failed)
}
