package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type ContactRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
	Message   string `json:"message" validate:"required,min=10,max=5000"`
}

type UpdateSubmissionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new read responded archived"`
}

// Response DTOs

type ContactSubmissionResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ContactSubmissionListResponse struct {
	Submissions []ContactSubmissionResponse `json:"submissions"`
	Total       int                         `json:"total"`
}
