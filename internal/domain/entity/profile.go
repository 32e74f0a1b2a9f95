package entity

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role stored on a profile.
type Role string

const (
	RoleClient Role = "client"
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Profile is the application-level user record. It doubles as the credential
// store; PasswordHash never leaves the service.
type Profile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:text;not null" json:"-"`
	FullName     string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'client';index" json:"role"`
	IsActive     bool      `gorm:"not null;default:true;index" json:"is_active"`
	Phone        string    `gorm:"type:varchar(30)" json:"phone,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	DoctorProfile *DoctorProfile `gorm:"foreignKey:UserID" json:"doctor_profile,omitempty"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

func (p *Profile) IsDoctor() bool {
	return p != nil && p.Role == RoleDoctor
}
