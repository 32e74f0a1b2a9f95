package entity

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot is a window in which a doctor accepts up to Capacity appointments.
// Remaining capacity lives in Redis and is derived from appointments, not stored here.
type AvailabilitySlot struct {
	ID        int       `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	SlotDate  time.Time `gorm:"type:date;not null;index" json:"slot_date"`
	StartTime string    `gorm:"type:time;not null" json:"start_time"`
	EndTime   string    `gorm:"type:time;not null" json:"end_time"`
	Capacity  int       `gorm:"not null" json:"capacity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor       DoctorProfile `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Appointments []Appointment `gorm:"foreignKey:SlotID" json:"appointments,omitempty"`
}

func (AvailabilitySlot) TableName() string {
	return "availability_slots"
}

// EndsAt is the instant the slot closes, in UTC. An unreadable end time
// closes the slot at the end of its day.
func (s *AvailabilitySlot) EndsAt() time.Time {
	day := time.Date(s.SlotDate.Year(), s.SlotDate.Month(), s.SlotDate.Day(), 0, 0, 0, 0, time.UTC)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if clock, err := time.Parse(layout, s.EndTime); err == nil {
			return day.Add(time.Duration(clock.Hour())*time.Hour +
				time.Duration(clock.Minute())*time.Minute +
				time.Duration(clock.Second())*time.Second)
		}
	}
	return day.AddDate(0, 0, 1)
}

// IsPast reports whether the slot has already ended at now.
func (s *AvailabilitySlot) IsPast(now time.Time) bool {
	return !now.Before(s.EndsAt())
}
