package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ServiceListing is a bookable service offered by a provider account. It
// shares the feature record shape with Product through FeatureState.
type ServiceListing struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	Title        string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Slug         string         `gorm:"type:varchar(220);uniqueIndex" json:"slug"`
	Description  string         `gorm:"type:text" json:"description" validate:"max=5000"`
	HourlyCents  int64          `gorm:"not null;default:0" json:"hourly_cents" validate:"gte=0"`
	Currency     string         `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	Status       string         `gorm:"type:varchar(20);not null;default:'draft';index" json:"status" validate:"oneof=draft published"`
	FeatureState `json:"feature"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *ServiceListing) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

// BeforeCreate derives the slug from the title if none was provided.
func (s *ServiceListing) BeforeCreate(tx *gorm.DB) error {
	if s.Slug == "" {
		s.Slug = slug.Make(s.Title)
	}
	return nil
}

func (s *ServiceListing) GetFeatureState() *FeatureState { return &s.FeatureState }
func (s *ServiceListing) ListingKind() string            { return ListingKindService }
func (s *ServiceListing) OwnerID() uint                  { return s.UserID }

// IsPublished reports whether the listing is visible to buyers.
func (s *ServiceListing) IsPublished() bool {
	return s.Status == ListingStatusPublished
}
