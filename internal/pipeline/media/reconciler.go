package media

import (
	"context"
	"fmt"
	"net/http"

	catalogdomain "github.com/kitmed/catalogsync/internal/catalog/domain"
	"github.com/kitmed/catalogsync/internal/config"
	"github.com/kitmed/catalogsync/internal/pipeline/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config config.Config
	Store  *DirStore
	Log    *zap.Logger
}

// Reconciler turns remote media URLs into local asset rows, downloading each
// distinct URL at most once per run. Failures are reported per URL; they never
// block the rest of a record's media, let alone the record itself.
type Reconciler struct {
	store     *DirStore
	client    *http.Client
	userAgent string
	maxBytes  int64
	log       *zap.Logger
}

func NewReconciler(p Params) *Reconciler {
	return &Reconciler{
		store:     p.Store,
		client:    &http.Client{Timeout: p.Config.DownloadTimeout},
		userAgent: p.Config.UserAgent,
		maxBytes:  p.Config.MaxFileSize,
		log:       p.Log.Named("media"),
	}
}

// NewDirStoreFromConfig provides the asset store rooted at the configured
// media directory.
func NewDirStoreFromConfig(cfg config.Config) (*DirStore, error) {
	return NewDirStore(cfg.MediaDir)
}

// Reconcile fetches a record's images and PDF brochure and returns the asset
// rows to attach, without product IDs; the merge engine fills those in. The
// first successful image is primary with sort order 0. Errors are
// DownloadErrors, one per failed URL.
func (r *Reconciler) Reconcile(ctx context.Context, run *RunContext, record domain.SupplierRecord) ([]catalogdomain.MediaAsset, []error) {
	var assets []catalogdomain.MediaAsset
	var errs []error

	images := 0
	for _, rawURL := range record.ImageURLs {
		f, err := r.fetch(ctx, run, rawURL, catalogdomain.MediaTypeImage)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		url := rawURL
		assets = append(assets, catalogdomain.MediaAsset{
			Type:        catalogdomain.MediaTypeImage,
			LocalPath:   f.relPath,
			SourceURL:   &url,
			IsPrimary:   images == 0,
			SortOrder:   images,
			ContentHash: f.hash,
		})
		images++
	}

	if record.PDFURL != "" {
		f, err := r.fetch(ctx, run, record.PDFURL, catalogdomain.MediaTypePDF)
		if err != nil {
			errs = append(errs, err)
		} else {
			url := record.PDFURL
			assets = append(assets, catalogdomain.MediaAsset{
				Type:        catalogdomain.MediaTypePDF,
				LocalPath:   f.relPath,
				SourceURL:   &url,
				IsPrimary:   true,
				ContentHash: f.hash,
			})
		}
	}

	return assets, errs
}

// fetch resolves one URL to a local file, in short-circuit order: same-run URL
// hit, then same-run or on-disk filename hit, then network.
func (r *Reconciler) fetch(ctx context.Context, run *RunContext, rawURL, mediaType string) (fetched, error) {
	if f, ok := run.lookupURL(rawURL); ok {
		run.stats.Reused++
		return f, nil
	}

	filename, err := FilenameForURL(rawURL, mediaType)
	if err != nil {
		run.stats.Failed++
		return fetched{}, &domain.DownloadError{URL: rawURL, Reason: err.Error()}
	}
	rel := RelPath(mediaType, filename)

	if run.fileKnown(rel) {
		hash, err := r.store.HashFile(rel)
		if err != nil {
			run.stats.Failed++
			return fetched{}, &domain.DownloadError{URL: rawURL, Reason: err.Error()}
		}
		f := fetched{relPath: rel, hash: hash}
		run.remember(rawURL, f)
		run.stats.Reused++
		r.log.Debug("reusing existing file", zap.String("url", rawURL), zap.String("path", rel))
		return f, nil
	}

	hash, size, err := r.download(ctx, rawURL, mediaType, filename)
	if err != nil {
		run.stats.Failed++
		return fetched{}, err
	}

	f := fetched{relPath: rel, hash: hash}
	run.remember(rawURL, f)
	run.stats.Downloaded++
	r.log.Debug("downloaded", zap.String("url", rawURL), zap.String("path", rel), zap.Int64("bytes", size))
	return f, nil
}

func (r *Reconciler) download(ctx context.Context, rawURL, mediaType, filename string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, &domain.DownloadError{URL: rawURL, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", 0, &domain.DownloadError{URL: rawURL, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, &domain.DownloadError{
			URL:    rawURL,
			Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	hash, size, err := r.store.Write(mediaType, filename, resp.Body, r.maxBytes)
	if err != nil {
		return "", 0, &domain.DownloadError{URL: rawURL, Reason: err.Error()}
	}
	return hash, size, nil
}
