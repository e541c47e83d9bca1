package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const (
	ListingStatusDraft     = "draft"
	ListingStatusPublished = "published"
)

// Product is a sellable listing owned by a seller account.
type Product struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	Title        string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Slug         string         `gorm:"type:varchar(220);uniqueIndex" json:"slug"`
	Description  string         `gorm:"type:text" json:"description" validate:"max=5000"`
	PriceCents   int64          `gorm:"not null;default:0" json:"price_cents" validate:"gte=0"`
	Currency     string         `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	Status       string         `gorm:"type:varchar(20);not null;default:'draft';index" json:"status" validate:"oneof=draft published"`
	FeatureState `json:"feature"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Product) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// BeforeCreate derives the slug from the title if none was provided.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = slug.Make(p.Title)
	}
	return nil
}

func (p *Product) GetFeatureState() *FeatureState { return &p.FeatureState }
func (p *Product) ListingKind() string            { return ListingKindProduct }
func (p *Product) OwnerID() uint                  { return p.UserID }

// IsPublished reports whether the listing is visible to buyers.
func (p *Product) IsPublished() bool {
	return p.Status == ListingStatusPublished
}
