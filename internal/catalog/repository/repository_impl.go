package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kitmed/catalogsync/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Store {
	return &repo{}
}

func (r *repo) FindManufacturerBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Manufacturer, error) {
	var m domain.Manufacturer
	err := db.WithContext(ctx).Where("slug = ?", slug).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repo) ListManufacturers(ctx context.Context, db *gorm.DB) ([]domain.Manufacturer, error) {
	var items []domain.Manufacturer
	if err := db.WithContext(ctx).Order("slug ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error) {
	var c domain.Category
	err := db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) FindProductByReferenceAndManufacturer(ctx context.Context, db *gorm.DB, reference string, manufacturerID int64) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Where("reference = ? AND manufacturer_id = ?", reference, manufacturerID).
		Order("created_at ASC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindProductsByReference(ctx context.Context, db *gorm.DB, reference string) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("reference = ?", reference).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListProductsByManufacturer(ctx context.Context, db *gorm.DB, manufacturerID int64) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("manufacturer_id = ?", manufacturerID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindProductBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindProductByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GroupProducts buckets all products by the requested key. Grouping happens in
// Go rather than SQL so the normalized keys stay consistent with the matcher
// regardless of dialect.
func (r *repo) GroupProducts(ctx context.Context, db *gorm.DB, key domain.GroupKey, locale string) ([]domain.ProductGroup, error) {
	var products []domain.Product
	if err := db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&products).Error; err != nil {
		return nil, err
	}

	names := map[int64]string{}
	if key == domain.GroupByName {
		var translations []domain.Translation
		if err := db.WithContext(ctx).Where("locale = ?", locale).Find(&translations).Error; err != nil {
			return nil, err
		}
		for _, tr := range translations {
			names[tr.ProductID] = tr.Name
		}
	}

	buckets := map[string][]domain.Product{}
	for _, p := range products {
		var groupKey string
		switch key {
		case domain.GroupByReference:
			groupKey = fmt.Sprintf("%s|%d", p.Reference, p.ManufacturerID)
		case domain.GroupByName:
			name := names[p.ID]
			if name == "" {
				continue
			}
			groupKey = fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(name)), p.ManufacturerID)
		default:
			return nil, fmt.Errorf("unknown group key %q", key)
		}
		buckets[groupKey] = append(buckets[groupKey], p)
	}

	groups := make([]domain.ProductGroup, 0, len(buckets))
	for k, members := range buckets {
		groups = append(groups, domain.ProductGroup{Key: k, Products: members})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups, nil
}

func (r *repo) CreateProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) UpdateProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Save(product).Error
}

func (r *repo) DeleteProduct(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Delete(&domain.Product{}, id).Error
}

func (r *repo) FindTranslation(ctx context.Context, db *gorm.DB, productID int64, locale string) (*domain.Translation, error) {
	var tr domain.Translation
	err := db.WithContext(ctx).Where("product_id = ? AND locale = ?", productID, locale).First(&tr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

func (r *repo) ListTranslations(ctx context.Context, db *gorm.DB, productID int64) ([]domain.Translation, error) {
	var items []domain.Translation
	err := db.WithContext(ctx).Where("product_id = ?", productID).Order("locale ASC").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CreateTranslation(ctx context.Context, db *gorm.DB, tr *domain.Translation) error {
	return db.WithContext(ctx).Create(tr).Error
}

func (r *repo) UpdateTranslation(ctx context.Context, db *gorm.DB, tr *domain.Translation) error {
	if tr == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Save(tr).Error
}

func (r *repo) DeleteTranslations(ctx context.Context, db *gorm.DB, productID int64) error {
	return db.WithContext(ctx).Where("product_id = ?", productID).Delete(&domain.Translation{}).Error
}

func (r *repo) ListMedia(ctx context.Context, db *gorm.DB, productID int64) ([]domain.MediaAsset, error) {
	var items []domain.MediaAsset
	err := db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("type ASC, sort_order ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CreateMediaAsset(ctx context.Context, db *gorm.DB, asset *domain.MediaAsset) error {
	return db.WithContext(ctx).Create(asset).Error
}

func (r *repo) UpdateMediaAsset(ctx context.Context, db *gorm.DB, asset *domain.MediaAsset) error {
	if asset == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Save(asset).Error
}

func (r *repo) DeleteMediaAssets(ctx context.Context, db *gorm.DB, productID int64) error {
	return db.WithContext(ctx).Where("product_id = ?", productID).Delete(&domain.MediaAsset{}).Error
}
