package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/kitmed/catalogsync/internal/catalog/domain"
	"github.com/kitmed/catalogsync/internal/catalog/repository"
	"github.com/kitmed/catalogsync/internal/config"
	"github.com/kitmed/catalogsync/internal/metrics"
	"github.com/kitmed/catalogsync/internal/migration"
	"github.com/kitmed/catalogsync/internal/pipeline/domain"
	"github.com/kitmed/catalogsync/internal/pipeline/media"
	"github.com/kitmed/catalogsync/internal/pipeline/merge"
	"github.com/kitmed/catalogsync/internal/pipeline/normalizer"
	"github.com/kitmed/catalogsync/internal/pipeline/resolver"
	"github.com/kitmed/catalogsync/pkg/db"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc     *Service
	conn    *gorm.DB
	store   catalogdomain.Store
	metrics *metrics.Metrics
	cfg     config.Config
}

func newFixture(t *testing.T, csvContent string, wrapStore ...func(catalogdomain.Store) catalogdomain.Store) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	require.NoError(t, conn.Create(&catalogdomain.Manufacturer{
		ID: 1, Name: "Vitro Médical", Slug: "vitro-medical", Status: catalogdomain.StatusActive,
	}).Error)
	require.NoError(t, conn.Create(&catalogdomain.Category{
		ID: 10, Name: "Imagerie", Slug: "imagerie", IsActive: true,
	}).Error)
	require.NoError(t, conn.Create(&catalogdomain.Category{
		ID: 11, Name: "Divers", Slug: "divers", IsActive: true,
	}).Error)

	dir := t.TempDir()
	importFile := filepath.Join(dir, "batch.csv")
	require.NoError(t, os.WriteFile(importFile, []byte(csvContent), 0o644))

	cfg := config.Config{
		ImportFile:                importFile,
		PrimaryLocale:             "fr",
		Locales:                   []string{"fr", "en"},
		UpdateExisting:            true,
		MediaDir:                  filepath.Join(dir, "uploads"),
		DownloadTimeout:           5 * time.Second,
		DownloadDelay:             0,
		MaxFileSize:               10 * 1024 * 1024,
		MaxImagesPerRecord:        5,
		UserAgent:                 "catalogsync-test",
		MaxConsecutiveStoreErrors: 5,
	}

	mappings := config.Mappings{
		ManufacturerAliases: map[string]string{"Vitro Médical France": "vitro-medical"},
		CategoryMappings:    map[string]string{"Imagerie médicale": "imagerie"},
		DefaultCategory:     "divers",
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	store := repository.Provide()
	for _, wrap := range wrapStore {
		store = wrap(store)
	}
	log := zap.NewNop()

	mediaStore, err := media.NewDirStore(cfg.MediaDir)
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())

	svc := New(Params{
		Config: cfg,
		Normalizer: normalizer.New(cfg.PrimaryLocale, cfg.MaxImagesPerRecord),
		Resolver: resolver.New(resolver.Params{
			DB: conn, Store: store, Mappings: mappings, Log: log,
		}),
		Reconciler: media.NewReconciler(media.Params{
			Config: cfg, Store: mediaStore, Log: log,
		}),
		MediaStore: mediaStore,
		Engine: merge.New(merge.Params{
			DB: conn, Store: store, Config: cfg, GenID: node, Log: log,
		}),
		Metrics: m,
		Log:     log,
	}).(*Service)

	return &fixture{svc: svc, conn: conn, store: store, metrics: m, cfg: cfg}
}

const csvHeader = "referenceFournisseur,constructeur,categoryId,nom_fr,nom_en,description_fr,imageUrls,pdfBrochureUrl,status,featured\n"

func TestRunImportsAndIsIdempotent(t *testing.T) {
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits[req.URL.Path]++
		w.Write([]byte("bytes-" + req.URL.Path))
	}))
	defer srv.Close()

	rows := csvHeader +
		fmt.Sprintf("VRS-19,Vitro Médical France,Imagerie médicale,Ventilateur VRS-19,VRS-19 Ventilator,Ventilateur compact,%s/vrs19.jpg|%s/vrs19-side.jpg,%s/vrs19.pdf,active,true\n",
			srv.URL, srv.URL, srv.URL) +
		",Vitro Médical,Divers,Brancard pliable,,,,,active,\n" + // no SKU anywhere
		"TR-17,Constructeur Inconnu,Divers,Chariot TR-17,,,,,active,\n" // unknown manufacturer

	f := newFixture(t, rows)
	ctx := context.Background()

	summary, err := f.svc.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalProcessed)
	assert.Equal(t, 1, summary.Counts[domain.OutcomeCreated])
	assert.Equal(t, 1, summary.Counts[domain.OutcomeSkippedNoSKU])
	assert.Equal(t, 1, summary.Counts[domain.OutcomeSkippedNoMatch])
	require.Len(t, summary.Problems, 2)

	assert.Equal(t, 3, summary.Media.Downloaded)
	assert.Equal(t, 0, summary.Media.Failed)

	var products []catalogdomain.Product
	require.NoError(t, f.conn.Find(&products).Error)
	require.Len(t, products, 1)
	assert.Equal(t, "VRS-19", products[0].Reference)
	assert.Equal(t, int64(10), products[0].CategoryID)
	assert.True(t, products[0].IsFeatured)
	require.NotNil(t, products[0].PDFPath)
	assert.Equal(t, "pdfs/vrs19.pdf", *products[0].PDFPath)

	assets, err := f.store.ListMedia(ctx, f.conn, products[0].ID)
	require.NoError(t, err)
	assert.Len(t, assets, 3)

	// Second run over the same file: updates, nothing downloaded again, no
	// duplicate rows.
	summary2, err := f.svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary2.Counts[domain.OutcomeUpdated])
	assert.Equal(t, 0, summary2.Media.Downloaded)
	assert.Equal(t, 3, summary2.Media.Reused)

	require.NoError(t, f.conn.Find(&products).Error)
	assert.Len(t, products, 1)

	assets, err = f.store.ListMedia(ctx, f.conn, products[0].ID)
	require.NoError(t, err)
	assert.Len(t, assets, 3)

	assert.Equal(t, 1, hits["/vrs19.jpg"])
	assert.Equal(t, 1, hits["/vrs19-side.jpg"])
	assert.Equal(t, 1, hits["/vrs19.pdf"])

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RecordsProcessed.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RecordsProcessed.WithLabelValues("updated")))
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.MediaDownloaded))
}

func TestRunSameRunDuplicateSkipped(t *testing.T) {
	rows := csvHeader +
		"VRS-19,Vitro Médical,Divers,Ventilateur VRS-19,,,,,active,\n" +
		"vrs19,Vitro Médical,Divers,Ventilateur VRS-19 bis,,,,,active,\n"

	f := newFixture(t, rows)

	summary, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Counts[domain.OutcomeCreated])
	assert.Equal(t, 1, summary.Counts[domain.OutcomeSkippedDuplicate])

	var count int64
	require.NoError(t, f.conn.Model(&catalogdomain.Product{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// failOnceStore makes the first product insert fail the way a transient
// database outage would.
type failOnceStore struct {
	catalogdomain.Store
	failed bool
}

func (s *failOnceStore) CreateProduct(ctx context.Context, db *gorm.DB, p *catalogdomain.Product) error {
	if !s.failed {
		s.failed = true
		return fmt.Errorf("database is locked")
	}
	return s.Store.CreateProduct(ctx, db, p)
}

func TestRunFailedRowDoesNotShadowSameReference(t *testing.T) {
	rows := csvHeader +
		"VRS-19,Vitro Médical,Divers,Ventilateur VRS-19,,,,,active,\n" +
		"VRS-19,Vitro Médical,Divers,Ventilateur VRS-19,,,,,active,\n"

	f := newFixture(t, rows, func(s catalogdomain.Store) catalogdomain.Store {
		return &failOnceStore{Store: s}
	})

	summary, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	// The failed first row must not claim the reference: the identical second
	// row is attempted, not reported as a same-run duplicate.
	assert.Equal(t, 1, summary.Counts[domain.OutcomeError])
	assert.Equal(t, 1, summary.Counts[domain.OutcomeCreated])
	assert.Equal(t, 0, summary.Counts[domain.OutcomeSkippedDuplicate])

	var count int64
	require.NoError(t, f.conn.Model(&catalogdomain.Product{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRunBrokenImageStillCreatesProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	}))
	defer srv.Close()

	rows := csvHeader +
		fmt.Sprintf("VRS-19,Vitro Médical,Divers,Ventilateur VRS-19,,,%s/gone.jpg,,active,\n", srv.URL)

	f := newFixture(t, rows)
	ctx := context.Background()

	summary, err := f.svc.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Counts[domain.OutcomeCreated])
	assert.Equal(t, 1, summary.Media.Failed)
	require.Len(t, summary.Problems, 1)
	assert.Equal(t, 2, summary.Problems[0].Row)
	assert.Contains(t, summary.Problems[0].Reason, "404")

	var products []catalogdomain.Product
	require.NoError(t, f.conn.Find(&products).Error)
	require.Len(t, products, 1)

	assets, err := f.store.ListMedia(ctx, f.conn, products[0].ID)
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestRunCancelledBetweenRecords(t *testing.T) {
	rows := csvHeader +
		"VRS-19,Vitro Médical,Divers,Ventilateur VRS-19,,,,,active,\n" +
		"TR-17,Vitro Médical,Divers,Chariot TR-17,,,,,active,\n"

	f := newFixture(t, rows)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.svc.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	// Cancellation lands before a record starts, never mid-record.
	assert.Equal(t, 0, summary.TotalProcessed)

	var count int64
	require.NoError(t, f.conn.Model(&catalogdomain.Product{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"referenceFournisseur,constructeur,categoryId,nom_fr,description_fr,imageUrls",
		`VRS-19,Acme,Imagerie,"Ventilateur, compact",Desc,https://cdn.example.com/a.jpg`,
		",Acme,,Sans référence,,",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "VRS-19", rows[0].SupplierSKU)
	assert.Equal(t, "Ventilateur, compact", rows[0].Names["fr"])
	assert.Equal(t, "Desc", rows[0].Descriptions["fr"])
	assert.Equal(t, 3, rows[1].Row)
	assert.Empty(t, rows[1].SupplierSKU)
}

func TestParseCSVRejectsMissingManufacturerColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("referenceFournisseur,nom_fr\nVRS-19,X\n"))
	require.Error(t, err)
}
