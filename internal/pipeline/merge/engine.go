package merge

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	catalogdomain "github.com/kitmed/catalogsync/internal/catalog/domain"
	"github.com/kitmed/catalogsync/internal/config"
	"github.com/kitmed/catalogsync/internal/pipeline/domain"
	"github.com/kitmed/catalogsync/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Store  catalogdomain.Store
	Config config.Config
	GenID  *snowflake.Node
	Log    *zap.Logger
}

// Engine writes supplier records into the catalog. Each upsert is one gorm
// transaction so a record is either fully applied or absent; a retry after a
// partial failure re-matches and completes instead of duplicating.
type Engine struct {
	db            *gorm.DB
	store         catalogdomain.Store
	genID         *snowflake.Node
	locales       []string
	primaryLocale string
	log           *zap.Logger
}

func New(p Params) *Engine {
	locales := p.Config.Locales
	if len(locales) == 0 {
		locales = []string{p.Config.PrimaryLocale}
	}
	return &Engine{
		db:            p.DB,
		store:         p.Store,
		genID:         p.GenID,
		locales:       locales,
		primaryLocale: p.Config.PrimaryLocale,
		log:           p.Log.Named("merge"),
	}
}

// Upsert applies one record. A nil match creates a product; otherwise the
// matched product is updated in place. Assets arrive without IDs or product
// IDs; the engine assigns both.
func (e *Engine) Upsert(ctx context.Context, record domain.SupplierRecord, match *catalogdomain.Product, rule domain.MatchRule, manufacturerID, categoryID int64, assets []catalogdomain.MediaAsset) (domain.ImportOutcome, error) {
	if match == nil {
		return e.create(ctx, record, manufacturerID, categoryID, assets)
	}
	return e.update(ctx, record, match, rule, assets)
}

func (e *Engine) create(ctx context.Context, record domain.SupplierRecord, manufacturerID, categoryID int64, assets []catalogdomain.MediaAsset) (domain.ImportOutcome, error) {
	product := &catalogdomain.Product{
		ID:             e.genID.Generate().Int64(),
		Reference:      record.SupplierSKU,
		ManufacturerID: manufacturerID,
		CategoryID:     categoryID,
		Status:         record.Status,
		IsFeatured:     record.IsFeatured,
		Metadata: datatypes.JSONMap{
			"supplier_manufacturer": record.ManufacturerRaw,
			"supplier_category":     record.CategoryRaw,
			"sku_extracted":         record.SKUExtracted,
		},
	}
	if p := pdfAsset(assets); p != nil {
		path := p.LocalPath
		product.PDFPath = &path
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		product.Slug, err = e.uniqueSlug(ctx, tx, record.Names[e.primaryLocale])
		if err != nil {
			return err
		}
		if err := e.store.CreateProduct(ctx, tx, product); err != nil {
			return fmt.Errorf("create product: %w", err)
		}

		primaryName := record.Names[e.primaryLocale]
		for _, locale := range e.locales {
			name := record.Names[locale]
			if name == "" {
				name = primaryName
			}
			tr := &catalogdomain.Translation{
				ID:             e.genID.Generate().Int64(),
				ProductID:      product.ID,
				Locale:         locale,
				Name:           name,
				Description:    optional(record.Descriptions[locale]),
				TechnicalSheet: optional(record.TechnicalSheets[locale]),
			}
			if err := e.store.CreateTranslation(ctx, tx, tr); err != nil {
				return fmt.Errorf("create translation %s: %w", locale, err)
			}
		}

		for i := range assets {
			asset := assets[i]
			asset.ID = e.genID.Generate().Int64()
			asset.ProductID = product.ID
			if err := e.store.CreateMediaAsset(ctx, tx, &asset); err != nil {
				return fmt.Errorf("create media asset: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		op := "create"
		if db.IsDuplicateKeyErr(err) {
			op = "create (duplicate key)"
		}
		return domain.ImportOutcome{}, &domain.PersistenceError{Op: op, Err: err}
	}

	e.log.Info("product created",
		zap.Int64("product_id", product.ID),
		zap.String("reference", product.Reference),
		zap.String("slug", product.Slug))

	return domain.ImportOutcome{
		Kind:      domain.OutcomeCreated,
		Row:       record.Row,
		Reference: record.SupplierSKU,
		ProductID: product.ID,
	}, nil
}

func (e *Engine) update(ctx context.Context, record domain.SupplierRecord, match *catalogdomain.Product, rule domain.MatchRule, assets []catalogdomain.MediaAsset) (domain.ImportOutcome, error) {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product := *match

		// The stored reference may be a consolidated multi-SKU list; the
		// category may be curated by hand. Neither is overwritten.
		if record.Status != "" {
			product.Status = record.Status
		}
		if record.IsFeatured {
			product.IsFeatured = true
		}
		if p := pdfAsset(assets); p != nil && (product.PDFPath == nil || *product.PDFPath == "") {
			path := p.LocalPath
			product.PDFPath = &path
		}
		if product.Metadata == nil {
			product.Metadata = datatypes.JSONMap{}
		}
		product.Metadata["supplier_manufacturer"] = record.ManufacturerRaw
		product.Metadata["supplier_category"] = record.CategoryRaw
		product.Metadata["matched_by"] = string(rule)

		if err := e.store.UpdateProduct(ctx, tx, &product); err != nil {
			return fmt.Errorf("update product: %w", err)
		}

		if err := e.updateTranslations(ctx, tx, product.ID, record); err != nil {
			return err
		}
		return e.appendMedia(ctx, tx, product.ID, assets)
	})
	if err != nil {
		return domain.ImportOutcome{}, &domain.PersistenceError{Op: "update", Err: err}
	}

	e.log.Info("product updated",
		zap.Int64("product_id", match.ID),
		zap.String("reference", record.SupplierSKU),
		zap.String("matched_by", string(rule)))

	return domain.ImportOutcome{
		Kind:      domain.OutcomeUpdated,
		Row:       record.Row,
		Reference: record.SupplierSKU,
		ProductID: match.ID,
	}, nil
}

func (e *Engine) updateTranslations(ctx context.Context, tx *gorm.DB, productID int64, record domain.SupplierRecord) error {
	primaryName := record.Names[e.primaryLocale]
	for _, locale := range e.locales {
		existing, err := e.store.FindTranslation(ctx, tx, productID, locale)
		if err != nil {
			return fmt.Errorf("find translation %s: %w", locale, err)
		}

		if existing == nil {
			name := record.Names[locale]
			if name == "" {
				name = primaryName
			}
			if name == "" {
				continue
			}
			tr := &catalogdomain.Translation{
				ID:             e.genID.Generate().Int64(),
				ProductID:      productID,
				Locale:         locale,
				Name:           name,
				Description:    optional(record.Descriptions[locale]),
				TechnicalSheet: optional(record.TechnicalSheets[locale]),
			}
			if err := e.store.CreateTranslation(ctx, tx, tr); err != nil {
				return fmt.Errorf("create translation %s: %w", locale, err)
			}
			continue
		}

		// Incoming empties never erase existing text.
		changed := false
		if name := record.Names[locale]; name != "" && name != existing.Name {
			existing.Name = name
			changed = true
		}
		if desc := record.Descriptions[locale]; desc != "" {
			if existing.Description == nil || *existing.Description != desc {
				existing.Description = &desc
				changed = true
			}
		}
		if sheet := record.TechnicalSheets[locale]; sheet != "" {
			if existing.TechnicalSheet == nil || *existing.TechnicalSheet != sheet {
				existing.TechnicalSheet = &sheet
				changed = true
			}
		}
		if changed {
			if err := e.store.UpdateTranslation(ctx, tx, existing); err != nil {
				return fmt.Errorf("update translation %s: %w", locale, err)
			}
		}
	}
	return nil
}

// appendMedia attaches incoming assets the product does not already have,
// comparing by source URL first and local path second. Existing primaries are
// preserved; a product that gained its first image gets it as primary.
func (e *Engine) appendMedia(ctx context.Context, tx *gorm.DB, productID int64, assets []catalogdomain.MediaAsset) error {
	existing, err := e.store.ListMedia(ctx, tx, productID)
	if err != nil {
		return fmt.Errorf("list media: %w", err)
	}

	known := map[string]bool{}
	hasPrimary := map[string]bool{}
	nextOrder := map[string]int{}
	for _, a := range existing {
		if a.SourceURL != nil && *a.SourceURL != "" {
			known["url:"+*a.SourceURL] = true
		}
		known["path:"+a.LocalPath] = true
		if a.IsPrimary {
			hasPrimary[a.Type] = true
		}
		if a.SortOrder >= nextOrder[a.Type] {
			nextOrder[a.Type] = a.SortOrder + 1
		}
	}

	for i := range assets {
		asset := assets[i]
		if asset.SourceURL != nil && known["url:"+*asset.SourceURL] {
			continue
		}
		if known["path:"+asset.LocalPath] {
			continue
		}

		asset.ID = e.genID.Generate().Int64()
		asset.ProductID = productID
		asset.IsPrimary = !hasPrimary[asset.Type]
		asset.SortOrder = nextOrder[asset.Type]

		if err := e.store.CreateMediaAsset(ctx, tx, &asset); err != nil {
			return fmt.Errorf("append media asset: %w", err)
		}

		hasPrimary[asset.Type] = true
		nextOrder[asset.Type]++
		if asset.SourceURL != nil {
			known["url:"+*asset.SourceURL] = true
		}
		known["path:"+asset.LocalPath] = true
	}
	return nil
}

// uniqueSlug derives a slug from the primary-locale name, suffixing -2, -3…
// until free.
func (e *Engine) uniqueSlug(ctx context.Context, tx *gorm.DB, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "produit"
	}

	candidate := base
	for n := 2; ; n++ {
		existing, err := e.store.FindProductBySlug(ctx, tx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

func pdfAsset(assets []catalogdomain.MediaAsset) *catalogdomain.MediaAsset {
	for i := range assets {
		if assets[i].Type == catalogdomain.MediaTypePDF {
			return &assets[i]
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
