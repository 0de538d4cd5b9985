// models/business_log.go
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BusinessLog is the audit trail shown on the owner dashboard.
type BusinessLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	BusinessID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Action      string    `gorm:"type:varchar(40);not null"` // joined, cancelled, called, completed
	Description string    `gorm:"type:text;not null"`
	Metadata    JSONB     `gorm:"type:jsonb;default:'{}'"`

	gorm.Model
}

func (b *BusinessLog) BeforeCreate(tx *gorm.DB) (err error) {
	b.ID = uuid.New()
	return
}
