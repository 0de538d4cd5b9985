package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	InquiryPending    = "PENDING"
	InquiryInProgress = "IN_PROGRESS"
	InquiryResolved   = "RESOLVED"
	InquiryClosed     = "CLOSED"
)

func ValidInquiryStatus(status string) bool {
	switch status {
	case InquiryPending, InquiryInProgress, InquiryResolved, InquiryClosed:
		return true
	}
	return false
}

type Inquiry struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID   uuid.UUID `gorm:"type:uuid;index"`
	FullName string    `gorm:"not null"`
	Email    string    `gorm:"not null"`
	Subject  string    `gorm:"not null"`
	Message  string    `gorm:"type:text;not null"`
	Status   string    `gorm:"type:varchar(20);not null;default:'PENDING'"`

	gorm.Model
}

func (i *Inquiry) BeforeCreate(tx *gorm.DB) (err error) {
	i.ID = uuid.New()
	return
}
