package entity

import (
	"time"

	"github.com/google/uuid"
)

// Domain-level filters used by the repository layer to avoid coupling with delivery DTOs.

type ContactFilter struct {
	Status SubmissionStatus
	Search string // substring over names, email and message
}

type ProfileFilter struct {
	Role     Role
	IsActive *bool
	Search   string // substring over full name and email
}

type DoctorFilter struct {
	Search         string
	Specialization string
	ActiveOnly     bool
}

type SlotFilter struct {
	DoctorID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

type AppointmentFilter struct {
	DoctorID *uuid.UUID
	Status   AppointmentStatus
	From     *time.Time
	To       *time.Time
}
