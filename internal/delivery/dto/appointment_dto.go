package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateAppointmentRequest struct {
	SlotID int    `json:"slot_id" validate:"required,gte=1"`
	Notes  string `json:"notes" validate:"omitempty,max=1000"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}

// Response DTOs

type AppointmentResponse struct {
	ID          uuid.UUID     `json:"id"`
	Reference   string        `json:"reference"`
	QueueNumber int           `json:"queue_number"`
	Status      string        `json:"status"`
	Notes       string        `json:"notes,omitempty"`
	PatientID   uuid.UUID     `json:"patient_id"`
	PatientName string        `json:"patient_name,omitempty"`
	Slot        *SlotResponse `json:"slot,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
