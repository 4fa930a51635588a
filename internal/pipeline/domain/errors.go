package domain

import "fmt"

// NormalizationError marks a malformed row. Always a per-record skip, never
// fatal to the run.
type NormalizationError struct {
	Row    int
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ResolutionError marks an unresolvable manufacturer label. Callers must
// surface it as a skip; silently assigning products to the wrong manufacturer
// corrupts the catalog.
type ResolutionError struct {
	Label string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unresolved manufacturer %q", e.Label)
}

// DownloadError marks a failed media fetch. The owning product is still
// written without that asset.
type DownloadError struct {
	URL    string
	Reason string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %s", e.URL, e.Reason)
}

// PersistenceError wraps a store write failure. Repeated occurrences are the
// only condition allowed to halt a run.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
