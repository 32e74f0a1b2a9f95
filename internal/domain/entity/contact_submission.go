package entity

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus tracks how far an admin has handled a contact message.
type SubmissionStatus string

const (
	SubmissionStatusNew       SubmissionStatus = "new"
	SubmissionStatusRead      SubmissionStatus = "read"
	SubmissionStatusResponded SubmissionStatus = "responded"
	SubmissionStatusArchived  SubmissionStatus = "archived"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusNew, SubmissionStatusRead, SubmissionStatusResponded, SubmissionStatusArchived:
		return true
	}
	return false
}

// ContactSubmission is a message left through the public contact form.
type ContactSubmission struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	FirstName string           `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string           `gorm:"type:varchar(100);not null" json:"last_name"`
	Email     string           `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone     string           `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Status    SubmissionStatus `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ContactSubmission) TableName() string {
	return "contact_submissions"
}

func (c *ContactSubmission) FullName() string {
	return c.FirstName + " " + c.LastName
}
