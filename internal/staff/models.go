package staff

import (
	"time"

	"tablebook/internal/shared/middleware"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin Role = middleware.RoleAdmin
	RoleStaff Role = middleware.RoleStaff
)

// Staff is a restaurant employee who can sign in to the admin endpoints
type Staff struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	DisplayName string    `json:"display_name" gorm:"not null"`
	Password    string    `json:"-" gorm:"not null"` // hide in json
	Role        Role      `json:"role" gorm:"not null;default:'STAFF'"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Staff) TableName() string {
	return "staff"
}

func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleAdmin, RoleStaff:
		return true
	default:
		return false
	}
}

// JWTClaims mirrors what middleware.JWTAuthWithConfig reads back
type JWTClaims struct {
	StaffID string `json:"staff_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Type    string `json:"type"` // always "access"
	jwt.RegisteredClaims
}
