package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateSlotRequest struct {
	DoctorID  *uuid.UUID `json:"doctor_id"`                                // required for admins, ignored for doctors
	SlotDate  string     `json:"slot_date" validate:"required"`            // Format: YYYY-MM-DD
	StartTime string     `json:"start_time" validate:"required,clocktime"` // Format: HH:MM
	EndTime   string     `json:"end_time" validate:"required,clocktime"`   // Format: HH:MM
	Capacity  *int       `json:"capacity" validate:"omitempty,gte=1,lte=100"`
}

type UpdateSlotRequest struct {
	SlotDate  string `json:"slot_date" validate:"omitempty"`
	StartTime string `json:"start_time" validate:"omitempty,clocktime"`
	EndTime   string `json:"end_time" validate:"omitempty,clocktime"`
	Capacity  *int   `json:"capacity" validate:"omitempty,gte=1,lte=100"`
}

// Response DTOs

type SlotResponse struct {
	ID        int       `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Doctor    string    `json:"doctor,omitempty"`
	SlotDate  string    `json:"slot_date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Capacity  int       `json:"capacity"`
	Remaining *int      `json:"remaining,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SlotListResponse struct {
	Slots []SlotResponse `json:"slots"`
	Total int            `json:"total"`
}
