package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type UpdateDoctorRequest struct {
	Name                *string          `json:"name" validate:"omitempty,min=2,max=255"`
	Specialization      *string          `json:"specialization" validate:"omitempty,min=2,max=100"`
	Bio                 *string          `json:"bio" validate:"omitempty,max=5000"`
	SlotDurationMinutes *int             `json:"slot_duration_minutes" validate:"omitempty,gte=5,lte=480"`
	DefaultCapacity     *int             `json:"default_capacity" validate:"omitempty,gte=1,lte=100"`
	ConsultationFee     *decimal.Decimal `json:"consultation_fee"`
}

// Response DTOs

type DoctorResponse struct {
	ID                  uuid.UUID       `json:"id"`
	UserID              uuid.UUID       `json:"user_id"`
	Name                string          `json:"name"`
	Email               string          `json:"email,omitempty"`
	Specialization      string          `json:"specialization"`
	Bio                 string          `json:"bio,omitempty"`
	SlotDurationMinutes int             `json:"slot_duration_minutes"`
	DefaultCapacity     int             `json:"default_capacity"`
	ConsultationFee     decimal.Decimal `json:"consultation_fee"`
	IsActive            bool            `json:"is_active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// PublicDoctorResponse is the marketing view of a doctor; no contact or account data.
type PublicDoctorResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Specialization  string          `json:"specialization"`
	Bio             string          `json:"bio,omitempty"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Total   int              `json:"total"`
}

type PublicDoctorListResponse struct {
	Doctors []PublicDoctorResponse `json:"doctors"`
	Total   int                    `json:"total"`
}
