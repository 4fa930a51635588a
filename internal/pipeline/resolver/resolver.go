package resolver

import (
	"context"
	"fmt"
	"strings"

	catalogdomain "github.com/kitmed/catalogsync/internal/catalog/domain"
	"github.com/kitmed/catalogsync/internal/config"
	"github.com/kitmed/catalogsync/internal/pipeline/domain"
	"github.com/kitmed/catalogsync/internal/pipeline/normalizer"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Store    catalogdomain.Store
	Mappings config.Mappings
	Log      *zap.Logger
}

// Resolver pins free-form supplier labels to catalog entities. Manufacturer
// and category lookups are cached for the lifetime of the resolver, which is
// one import run.
type Resolver struct {
	db       *gorm.DB
	store    catalogdomain.Store
	mappings config.Mappings
	log      *zap.Logger

	manufacturers map[string]*catalogdomain.Manufacturer // normalized key -> row
	categories    map[string]int64                       // slug -> id
}

func New(p Params) *Resolver {
	return &Resolver{
		db:         p.DB,
		store:      p.Store,
		mappings:   p.Mappings,
		log:        p.Log.Named("resolver"),
		categories: map[string]int64{},
	}
}

// ResolveManufacturer maps a raw manufacturer label to a catalog manufacturer.
// Alias table first, then a normalized comparison against known manufacturer
// names and slugs. There is deliberately no fallback: a wrong manufacturer is
// worse than a skipped record.
func (r *Resolver) ResolveManufacturer(ctx context.Context, rawLabel string) (*catalogdomain.Manufacturer, error) {
	label := strings.TrimSpace(rawLabel)
	if label == "" {
		return nil, &domain.ResolutionError{Label: rawLabel}
	}

	if slug, ok := r.aliasFor(label); ok {
		m, err := r.store.FindManufacturerBySlug(ctx, r.db, slug)
		if err != nil {
			return nil, fmt.Errorf("lookup manufacturer %s: %w", slug, err)
		}
		if m == nil {
			// Alias table points at a manufacturer the catalog does not have.
			r.log.Warn("alias targets unknown manufacturer", zap.String("label", label), zap.String("slug", slug))
			return nil, &domain.ResolutionError{Label: label}
		}
		return m, nil
	}

	if err := r.loadManufacturers(ctx); err != nil {
		return nil, err
	}
	if m, ok := r.manufacturers[normalizer.ManufacturerKey(label)]; ok {
		return m, nil
	}
	return nil, &domain.ResolutionError{Label: label}
}

// ResolveCategory maps a raw category label to a category ID. Exact mapping
// table, then keyword heuristics, then the configured default. Label
// resolution never fails; the returned error is a store failure only.
func (r *Resolver) ResolveCategory(ctx context.Context, rawLabel string) (int64, error) {
	slug := r.categorySlug(rawLabel)

	id, err := r.categoryID(ctx, slug)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}

	if slug != r.mappings.DefaultCategory {
		r.log.Warn("mapped category missing from catalog, using default",
			zap.String("label", rawLabel), zap.String("slug", slug))
		id, err = r.categoryID(ctx, r.mappings.DefaultCategory)
		if err != nil {
			return 0, err
		}
		if id != 0 {
			return id, nil
		}
	}
	return 0, fmt.Errorf("default category %q not found in catalog", r.mappings.DefaultCategory)
}

// MatchProduct finds the existing catalog product for a supplier record, if
// any. Rules in precedence order:
//
//  1. exact reference within the manufacturer, including membership in a
//     comma-joined multi-SKU reference left by a prior consolidation;
//  2. exact reference anywhere in the catalog, only when unambiguous
//     (manufacturer-mapping drift);
//  3. normalized reference within the manufacturer.
//
// A nil product with a nil error means no match: the record is new.
func (r *Resolver) MatchProduct(ctx context.Context, record domain.SupplierRecord, manufacturerID int64) (*catalogdomain.Product, domain.MatchRule, error) {
	reference := strings.TrimSpace(record.SupplierSKU)
	if reference == "" {
		return nil, domain.MatchNone, nil
	}

	// Rule 1: exact within the manufacturer.
	p, err := r.store.FindProductByReferenceAndManufacturer(ctx, r.db, reference, manufacturerID)
	if err != nil {
		return nil, domain.MatchNone, fmt.Errorf("match by reference: %w", err)
	}
	if p != nil {
		return p, domain.MatchExact, nil
	}

	owned, err := r.store.ListProductsByManufacturer(ctx, r.db, manufacturerID)
	if err != nil {
		return nil, domain.MatchNone, fmt.Errorf("list manufacturer products: %w", err)
	}
	for i := range owned {
		if containsReference(owned[i].Reference, reference, false) {
			return &owned[i], domain.MatchExact, nil
		}
	}

	// Rule 2: exact reference across the catalog, only when there is exactly
	// one candidate.
	candidates, err := r.store.FindProductsByReference(ctx, r.db, reference)
	if err != nil {
		return nil, domain.MatchNone, fmt.Errorf("match by reference only: %w", err)
	}
	if len(candidates) == 1 {
		r.log.Info("matched outside manufacturer, check manufacturer mapping",
			zap.String("reference", reference),
			zap.Int64("manufacturer_id", manufacturerID),
			zap.Int64("matched_manufacturer_id", candidates[0].ManufacturerID))
		return &candidates[0], domain.MatchReferenceOnly, nil
	}

	// Rule 3: normalized reference within the manufacturer.
	for i := range owned {
		if containsReference(owned[i].Reference, reference, true) {
			return &owned[i], domain.MatchNormalizedReference, nil
		}
	}
	return nil, domain.MatchNone, nil
}

func (r *Resolver) aliasFor(label string) (string, bool) {
	if slug, ok := r.mappings.ManufacturerAliases[label]; ok {
		return slug, true
	}
	lower := strings.ToLower(label)
	for alias, slug := range r.mappings.ManufacturerAliases {
		if strings.ToLower(alias) == lower {
			return slug, true
		}
	}
	return "", false
}

func (r *Resolver) categorySlug(rawLabel string) string {
	label := strings.TrimSpace(rawLabel)
	if label == "" {
		return r.mappings.DefaultCategory
	}

	if slug, ok := r.mappings.CategoryMappings[label]; ok {
		return slug
	}
	lower := strings.ToLower(label)
	for key, slug := range r.mappings.CategoryMappings {
		if strings.ToLower(key) == lower {
			return slug
		}
	}

	for _, rule := range r.mappings.CategoryKeywords {
		if rule.Keyword != "" && strings.Contains(lower, strings.ToLower(rule.Keyword)) {
			return rule.Category
		}
	}
	return r.mappings.DefaultCategory
}

func (r *Resolver) categoryID(ctx context.Context, slug string) (int64, error) {
	if id, ok := r.categories[slug]; ok {
		return id, nil
	}
	c, err := r.store.FindCategoryBySlug(ctx, r.db, slug)
	if err != nil {
		return 0, fmt.Errorf("lookup category %s: %w", slug, err)
	}
	if c == nil {
		return 0, nil
	}
	r.categories[slug] = c.ID
	return c.ID, nil
}

func (r *Resolver) loadManufacturers(ctx context.Context) error {
	if r.manufacturers != nil {
		return nil
	}
	rows, err := r.store.ListManufacturers(ctx, r.db)
	if err != nil {
		return fmt.Errorf("list manufacturers: %w", err)
	}
	r.manufacturers = make(map[string]*catalogdomain.Manufacturer, len(rows))
	for i := range rows {
		m := &rows[i]
		r.manufacturers[normalizer.ManufacturerKey(m.Name)] = m
		r.manufacturers[normalizer.ManufacturerKey(m.Slug)] = m
	}
	return nil
}

// containsReference reports whether a stored reference field, possibly a
// comma-joined multi-SKU list, contains the incoming reference.
func containsReference(stored, incoming string, normalized bool) bool {
	want := incoming
	if normalized {
		want = catalogdomain.NormalizeReference(incoming)
	}
	for _, member := range catalogdomain.SplitReferences(stored) {
		got := member
		if normalized {
			got = catalogdomain.NormalizeReference(member)
		}
		if got == want {
			return true
		}
	}
	return false
}
