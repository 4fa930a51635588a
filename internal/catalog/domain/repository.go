package domain

import (
	"context"

	"gorm.io/gorm"
)

// GroupKey selects how GroupProducts buckets existing products when hunting
// for duplicates.
type GroupKey string

const (
	// GroupByReference groups by (reference, manufacturerID).
	GroupByReference GroupKey = "reference"
	// GroupByName groups by (normalized primary-locale name, manufacturerID).
	GroupByName GroupKey = "name"
)

// ProductGroup is one duplicate-candidate bucket. Products are ordered by
// creation time, oldest first.
type ProductGroup struct {
	Key      string
	Products []Product
}

// Store is the catalog's persistence interface. The pipeline never talks to
// the database directly; everything goes through this so the import logic can
// be exercised against an in-memory database.
type Store interface {
	FindManufacturerBySlug(ctx context.Context, db *gorm.DB, slug string) (*Manufacturer, error)
	ListManufacturers(ctx context.Context, db *gorm.DB) ([]Manufacturer, error)
	FindCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*Category, error)

	FindProductByReferenceAndManufacturer(ctx context.Context, db *gorm.DB, reference string, manufacturerID int64) (*Product, error)
	FindProductsByReference(ctx context.Context, db *gorm.DB, reference string) ([]Product, error)
	ListProductsByManufacturer(ctx context.Context, db *gorm.DB, manufacturerID int64) ([]Product, error)
	FindProductBySlug(ctx context.Context, db *gorm.DB, slug string) (*Product, error)
	FindProductByID(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	GroupProducts(ctx context.Context, db *gorm.DB, key GroupKey, locale string) ([]ProductGroup, error)

	CreateProduct(ctx context.Context, db *gorm.DB, product *Product) error
	UpdateProduct(ctx context.Context, db *gorm.DB, product *Product) error
	DeleteProduct(ctx context.Context, db *gorm.DB, id int64) error

	FindTranslation(ctx context.Context, db *gorm.DB, productID int64, locale string) (*Translation, error)
	ListTranslations(ctx context.Context, db *gorm.DB, productID int64) ([]Translation, error)
	CreateTranslation(ctx context.Context, db *gorm.DB, tr *Translation) error
	UpdateTranslation(ctx context.Context, db *gorm.DB, tr *Translation) error
	DeleteTranslations(ctx context.Context, db *gorm.DB, productID int64) error

	ListMedia(ctx context.Context, db *gorm.DB, productID int64) ([]MediaAsset, error)
	CreateMediaAsset(ctx context.Context, db *gorm.DB, asset *MediaAsset) error
	UpdateMediaAsset(ctx context.Context, db *gorm.DB, asset *MediaAsset) error
	DeleteMediaAssets(ctx context.Context, db *gorm.DB, productID int64) error
}
