package domain

import (
	"time"
)

// RawRow is one parsed CSV row, keyed to the recognized columns. Locale maps
// are keyed by locale code ("fr", "en").
type RawRow struct {
	Row             int
	SupplierSKU     string
	ManufacturerRaw string
	CategoryRaw     string
	Names           map[string]string
	Descriptions    map[string]string
	TechnicalSheets map[string]string
	ImageURLs       string
	PDFURL          string
	Status          string
	Featured        string
}

// SupplierRecord is the canonical form of one supplier row. Constructed once
// per run by the normalizer; immutable afterwards.
type SupplierRecord struct {
	Row             int
	SupplierSKU     string
	SKUExtracted    bool
	ManufacturerRaw string
	ManufacturerKey string
	CategoryRaw     string
	Names           map[string]string
	Descriptions    map[string]string
	TechnicalSheets map[string]string
	ImageURLs       []string
	PDFURL          string
	Status          string
	IsFeatured      bool
}

// Identifier returns the best human identifier for report lines.
func (r SupplierRecord) Identifier() string {
	if r.SupplierSKU != "" {
		return r.SupplierSKU
	}
	for _, name := range r.Names {
		return name
	}
	return "(unidentified)"
}

type OutcomeKind string

const (
	OutcomeCreated          OutcomeKind = "created"
	OutcomeUpdated          OutcomeKind = "updated"
	OutcomeSkippedDuplicate OutcomeKind = "skipped_duplicate"
	OutcomeSkippedNoMatch   OutcomeKind = "skipped_no_match"
	OutcomeSkippedNoSKU     OutcomeKind = "skipped_no_sku"
	OutcomeError            OutcomeKind = "error"
)

// ImportOutcome is the per-record result fed to the reporter.
type ImportOutcome struct {
	Kind      OutcomeKind
	Row       int
	Reference string
	ProductID int64
	Reason    string
}

// RecordProblem attributes a failure to a specific input row so an operator
// can correlate the summary back to the source file.
type RecordProblem struct {
	Row       int
	Reference string
	Reason    string
}

// MediaStats aggregates media handling over one run.
type MediaStats struct {
	Downloaded int
	Reused     int
	Failed     int
}

// RunSummary is the sole user-facing result of an import run.
type RunSummary struct {
	RunID          string
	StartedAt      time.Time
	Duration       time.Duration
	TotalProcessed int
	Counts         map[OutcomeKind]int
	Problems       []RecordProblem
	Media          MediaStats
}

// MatchRule identifies which matching rule produced a product hit.
type MatchRule string

const (
	MatchNone                MatchRule = ""
	MatchExact               MatchRule = "reference+manufacturer"
	MatchReferenceOnly       MatchRule = "reference-only"
	MatchNormalizedReference MatchRule = "normalized-reference"
)

// DuplicateGroup is one proposed consolidation unit.
type DuplicateGroup struct {
	Key         string
	CanonicalID int64
	MemberIDs   []int64
	References  []string
}

// ConsolidationReport lists proposed (detection) or applied (execution)
// duplicate groups.
type ConsolidationReport struct {
	Strategy        string
	Groups          []DuplicateGroup
	MediaMoved      int
	ProductsDeleted int
	Executed        bool
}
