package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

const (
	MediaTypeImage = "image"
	MediaTypePDF   = "pdf"
)

type Manufacturer struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Slug      string    `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Status    string    `json:"status" gorm:"type:text;not null;default:active"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Manufacturer) TableName() string { return "manufacturers" }

type Category struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Slug      string    `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	SortOrder int       `json:"sort_order" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Category) TableName() string { return "categories" }

// Product is the persisted catalog entity. (Reference, ManufacturerID) is
// intended to be unique; historical imports violated it, which is what the
// consolidation flow repairs.
type Product struct {
	ID             int64             `json:"id" gorm:"primaryKey"`
	Reference      string            `json:"reference" gorm:"type:text;not null;index:ix_products_reference"`
	ManufacturerID int64             `json:"manufacturer_id" gorm:"not null;index"`
	CategoryID     int64             `json:"category_id" gorm:"not null;index"`
	Slug           string            `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Status         string            `json:"status" gorm:"type:text;not null;default:active"`
	IsFeatured     bool              `json:"is_featured" gorm:"not null;default:false"`
	PDFPath        *string           `json:"pdf_path,omitempty" gorm:"type:text"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt      time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }

// Translation holds the per-locale text of a product. At most one row per
// (ProductID, Locale).
type Translation struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	ProductID      int64     `json:"product_id" gorm:"not null;index:ux_translations_product_locale,unique,priority:1"`
	Locale         string    `json:"locale" gorm:"type:text;not null;index:ux_translations_product_locale,unique,priority:2"`
	Name           string    `json:"name" gorm:"type:text;not null"`
	Description    *string   `json:"description,omitempty" gorm:"type:text"`
	TechnicalSheet *string   `json:"technical_sheet,omitempty" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Translation) TableName() string { return "product_translations" }

// MediaAsset is one stored file attached to a product. SourceURL is kept so a
// later pass can tell which remote origin a file came from; ContentHash is the
// dedup key for cross-name content comparison.
type MediaAsset struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	ProductID   int64     `json:"product_id" gorm:"not null;index"`
	Type        string    `json:"type" gorm:"type:text;not null"`
	LocalPath   string    `json:"local_path" gorm:"type:text;not null"`
	SourceURL   *string   `json:"source_url,omitempty" gorm:"type:text"`
	IsPrimary   bool      `json:"is_primary" gorm:"not null;default:false"`
	SortOrder   int       `json:"sort_order" gorm:"not null;default:0"`
	ContentHash string    `json:"content_hash" gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (MediaAsset) TableName() string { return "product_media" }
