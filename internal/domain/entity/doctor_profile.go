package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scheduling defaults applied when a doctor profile is created without them.
const (
	DefaultSlotDurationMinutes = 30
	DefaultSlotCapacity        = 1
)

// DoctorProfile extends a Profile whose role is doctor.
type DoctorProfile struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID              uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Name                string          `gorm:"type:varchar(255);not null" json:"name"`
	Specialization      string          `gorm:"type:varchar(100);not null;default:'General Practice';index" json:"specialization"`
	Bio                 string          `gorm:"type:text" json:"bio,omitempty"`
	SlotDurationMinutes int             `gorm:"not null;default:30" json:"slot_duration_minutes"`
	DefaultCapacity     int             `gorm:"not null;default:1" json:"default_capacity"`
	ConsultationFee     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"consultation_fee"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	User  Profile            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Slots []AvailabilitySlot `gorm:"foreignKey:DoctorID" json:"slots,omitempty"`
}

func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}

// NewDoctorProfileFor builds the profile created when a client is promoted.
func NewDoctorProfileFor(p *Profile) *DoctorProfile {
	return &DoctorProfile{
		UserID:              p.ID,
		Name:                p.FullName,
		Specialization:      "General Practice",
		SlotDurationMinutes: DefaultSlotDurationMinutes,
		DefaultCapacity:     DefaultSlotCapacity,
		ConsultationFee:     decimal.Zero,
	}
}
