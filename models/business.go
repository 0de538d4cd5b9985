package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Business struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	OwnerID uuid.UUID `gorm:"type:uuid;index;not null"`

	Name     string `gorm:"not null"`
	Category string `gorm:"default:'General'"`
	Location string
	ImageURL string
	IsOpen   bool `gorm:"default:true"`

	Services []Service `gorm:"foreignKey:BusinessID"`

	gorm.Model
}

func (b *Business) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// LikedPlace is a user's saved business. One row per (user, business) pair.
type LikedPlace struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_business,priority:1"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_business,priority:2"`

	gorm.Model
}

func (l *LikedPlace) BeforeCreate(tx *gorm.DB) (err error) {
	l.ID = uuid.New()
	return
}
