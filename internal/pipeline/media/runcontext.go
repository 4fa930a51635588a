package media

import (
	"github.com/kitmed/catalogsync/internal/catalog/domain"
	pipeline "github.com/kitmed/catalogsync/internal/pipeline/domain"
)

// fetched is the remembered result of one URL within a run.
type fetched struct {
	relPath string
	hash    string
}

// RunContext carries the per-run dedup state: URLs already handled, filenames
// claimed during this run, and the directory listing taken at run start. One
// RunContext per import run; not safe for concurrent use, matching the
// sequential pipeline.
type RunContext struct {
	byURL    map[string]fetched
	claimed  map[string]bool
	existing map[string]bool
	stats    pipeline.MediaStats
}

func NewRunContext(store *DirStore) (*RunContext, error) {
	run := &RunContext{
		byURL:    map[string]fetched{},
		claimed:  map[string]bool{},
		existing: map[string]bool{},
	}
	for _, mediaType := range []string{domain.MediaTypeImage, domain.MediaTypePDF} {
		names, err := store.ListFilenames(mediaType)
		if err != nil {
			return nil, err
		}
		for name := range names {
			run.existing[RelPath(mediaType, name)] = true
		}
	}
	return run, nil
}

// Stats returns the media counters accumulated so far.
func (r *RunContext) Stats() pipeline.MediaStats { return r.stats }

func (r *RunContext) lookupURL(url string) (fetched, bool) {
	f, ok := r.byURL[url]
	return f, ok
}

func (r *RunContext) remember(url string, f fetched) {
	r.byURL[url] = f
	r.claimed[f.relPath] = true
}

func (r *RunContext) fileKnown(rel string) bool {
	return r.claimed[rel] || r.existing[rel]
}
