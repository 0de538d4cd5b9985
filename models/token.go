package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Token lifecycle states.
const (
	StatusWaiting   = "WAITING"
	StatusServing   = "SERVING"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Allowed status transitions. COMPLETED and CANCELLED are terminal and a
// token never returns to WAITING.
var tokenTransitions = map[string][]string{
	StatusWaiting: {StatusServing, StatusCancelled},
	StatusServing: {StatusCompleted},
}

func ValidTransition(from, to string) bool {
	for _, next := range tokenTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidStatus(status string) bool {
	switch status {
	case StatusWaiting, StatusServing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Token is a customer's place in a business's queue for a service.
type Token struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	BusinessID uuid.UUID `gorm:"type:uuid;index;not null"`
	ServiceID  uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null"`

	// TokenNumber is a display label ("H-412"), not unique and never used
	// as a lookup key.
	TokenNumber string `gorm:"not null"`

	// Position is the waiting count at join time plus one. It is a snapshot
	// and is never recomputed when earlier tokens leave the queue.
	Position int    `gorm:"not null"`
	Status   string `gorm:"type:varchar(20);not null;default:'WAITING'"`
	JoinedAt time.Time
	Notes    string

	// Joined in at read time for display, not stored.
	CustomerName string `gorm:"-"`
	BusinessName string `gorm:"-"`

	gorm.Model
}

func (t *Token) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.JoinedAt.IsZero() {
		t.JoinedAt = time.Now()
	}
	return
}

// Active reports whether the token still occupies a queue slot.
func (t *Token) Active() bool {
	return t.Status == StatusWaiting || t.Status == StatusServing
}
