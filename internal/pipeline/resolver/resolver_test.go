package resolver

import (
	"context"
	"testing"

	catalogdomain "github.com/kitmed/catalogsync/internal/catalog/domain"
	"github.com/kitmed/catalogsync/internal/catalog/repository"
	"github.com/kitmed/catalogsync/internal/config"
	"github.com/kitmed/catalogsync/internal/migration"
	"github.com/kitmed/catalogsync/internal/pipeline/domain"
	"github.com/kitmed/catalogsync/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newResolver(t *testing.T, mappings config.Mappings) (*Resolver, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	r := New(Params{
		DB:       conn,
		Store:    repository.Provide(),
		Mappings: mappings,
		Log:      zap.NewNop(),
	})
	return r, conn
}

func seedManufacturer(t *testing.T, conn *gorm.DB, id int64, name, slug string) {
	t.Helper()
	require.NoError(t, conn.Create(&catalogdomain.Manufacturer{
		ID: id, Name: name, Slug: slug, Status: catalogdomain.StatusActive,
	}).Error)
}

func seedCategory(t *testing.T, conn *gorm.DB, id int64, slug string) {
	t.Helper()
	require.NoError(t, conn.Create(&catalogdomain.Category{
		ID: id, Name: slug, Slug: slug, IsActive: true,
	}).Error)
}

func TestResolveManufacturerViaAlias(t *testing.T) {
	r, conn := newResolver(t, config.Mappings{
		ManufacturerAliases: map[string]string{"Vitro Médical France": "vitro-medical"},
		DefaultCategory:     "divers",
	})
	seedManufacturer(t, conn, 1, "Vitro Médical", "vitro-medical")

	m, err := r.ResolveManufacturer(context.Background(), "Vitro Médical France")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ID)
}

func TestResolveManufacturerNormalizedFallback(t *testing.T) {
	r, conn := newResolver(t, config.Mappings{DefaultCategory: "divers"})
	seedManufacturer(t, conn, 2, "Dräger", "drager")

	m, err := r.ResolveManufacturer(context.Background(), "  DRAGER ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.ID)
}

func TestResolveManufacturerUnknown(t *testing.T) {
	r, conn := newResolver(t, config.Mappings{DefaultCategory: "divers"})
	seedManufacturer(t, conn, 3, "Acme", "acme")

	_, err := r.ResolveManufacturer(context.Background(), "Nonexistent Corp")

	var rerr *domain.ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Nonexistent Corp", rerr.Label)
}

func TestResolveCategoryPrecedence(t *testing.T) {
	r, conn := newResolver(t, config.Mappings{
		CategoryMappings: map[string]string{"Imagerie médicale": "imagerie"},
		CategoryKeywords: []config.KeywordRule{
			{Keyword: "radio", Category: "imagerie"},
			{Keyword: "chirurg", Category: "bloc-operatoire"},
		},
		DefaultCategory: "divers",
	})
	seedCategory(t, conn, 10, "imagerie")
	seedCategory(t, conn, 11, "bloc-operatoire")
	seedCategory(t, conn, 12, "divers")

	ctx := context.Background()

	id, err := r.ResolveCategory(ctx, "Imagerie médicale")
	require.NoError(t, err)
	assert.Equal(t, int64(10), id)

	id, err = r.ResolveCategory(ctx, "Table de radiologie")
	require.NoError(t, err)
	assert.Equal(t, int64(10), id)

	id, err = r.ResolveCategory(ctx, "Instruments de chirurgie")
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)

	// Garbage in the category column still resolves.
	id, err = r.ResolveCategory(ctx, "VRS-19")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	id, err = r.ResolveCategory(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
}

func TestMatchProductPrecedence(t *testing.T) {
	r, conn := newResolver(t, config.Mappings{DefaultCategory: "divers"})
	seedManufacturer(t, conn, 1, "Acme", "acme")
	seedManufacturer(t, conn, 2, "Other", "other")
	seedCategory(t, conn, 10, "divers")

	require.NoError(t, conn.Create(&catalogdomain.Product{
		ID: 100, Reference: "VRS-19", ManufacturerID: 1, CategoryID: 10,
		Slug: "ventilateur-vrs-19", Status: catalogdomain.StatusActive,
	}).Error)
	require.NoError(t, conn.Create(&catalogdomain.Product{
		ID: 101, Reference: "TR-17", ManufacturerID: 2, CategoryID: 10,
		Slug: "chariot-tr-17", Status: catalogdomain.StatusActive,
	}).Error)

	ctx := context.Background()

	// Rule 1: exact within manufacturer.
	p, rule, err := r.MatchProduct(ctx, domain.SupplierRecord{SupplierSKU: "VRS-19"}, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(100), p.ID)
	assert.Equal(t, domain.MatchExact, rule)

	// Rule 2: unique reference under a different manufacturer.
	p, rule, err = r.MatchProduct(ctx, domain.SupplierRecord{SupplierSKU: "TR-17"}, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(101), p.ID)
	assert.Equal(t, domain.MatchReferenceOnly, rule)

	// Rule 3: normalized form within the manufacturer.
	p, rule, err = r.MatchProduct(ctx, domain.SupplierRecord{SupplierSKU: "vrs19"}, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(100), p.ID)
	assert.Equal(t, domain.MatchNormalizedReference, rule)

	// No match at all.
	p, rule, err = r.MatchProduct(ctx, domain.SupplierRecord{SupplierSKU: "XX-99"}, 1)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, domain.MatchNone, rule)
}

func TestMatchProductMultiSKUMembership(t *testing.T) {
	r, conn := newResolver(t, config.Mappings{DefaultCategory: "divers"})
	seedManufacturer(t, conn, 1, "Acme", "acme")
	seedCategory(t, conn, 10, "divers")

	// Reference left by a prior consolidation.
	require.NoError(t, conn.Create(&catalogdomain.Product{
		ID: 200, Reference: "VRS-19, VRS-20", ManufacturerID: 1, CategoryID: 10,
		Slug: "ventilateur-vrs", Status: catalogdomain.StatusActive,
	}).Error)

	p, rule, err := r.MatchProduct(context.Background(), domain.SupplierRecord{SupplierSKU: "VRS-20"}, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(200), p.ID)
	assert.Equal(t, domain.MatchExact, rule)
}

func TestMatchProductAmbiguousReferenceOnly(t *testing.T) {
	r, conn := newResolver(t, config.Mappings{DefaultCategory: "divers"})
	seedManufacturer(t, conn, 1, "Acme", "acme")
	seedManufacturer(t, conn, 2, "Other", "other")
	seedManufacturer(t, conn, 3, "Third", "third")
	seedCategory(t, conn, 10, "divers")

	require.NoError(t, conn.Create(&catalogdomain.Product{
		ID: 300, Reference: "SP-150", ManufacturerID: 2, CategoryID: 10,
		Slug: "table-sp-150", Status: catalogdomain.StatusActive,
	}).Error)
	require.NoError(t, conn.Create(&catalogdomain.Product{
		ID: 301, Reference: "SP-150", ManufacturerID: 3, CategoryID: 10,
		Slug: "table-sp-150-2", Status: catalogdomain.StatusActive,
	}).Error)

	// Two candidates under other manufacturers: ambiguous, so no match.
	p, rule, err := r.MatchProduct(context.Background(), domain.SupplierRecord{SupplierSKU: "SP-150"}, 1)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, domain.MatchNone, rule)
}
