package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"queueless-backend/utils"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles. The role set is closed; anything else is rejected at the
// auth boundary.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

func ValidRole(role string) bool {
	return role == RoleCustomer || role == RoleAdmin
}

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	Email    string    `gorm:"uniqueIndex;not null"`
	Password string    `gorm:"not null" json:"-"`
	FullName string    `gorm:"not null"`
	Phone    string

	Role string `gorm:"type:varchar(20);not null;default:'CUSTOMER'"`

	LastLogin *time.Time
	IsActive  bool `gorm:"default:true"`

	gorm.Model
}

// Initialize UUID and hash the password before creating
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	u.ID = uuid.New()
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return
}

// Custom JSONB type for log metadata
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, &j)
	case string:
		return json.Unmarshal([]byte(v), &j)
	default:
		return errors.New("unsupported type for JSONB scan")
	}
}
