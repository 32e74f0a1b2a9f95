package converter

import (
	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

// SlotToResponse converts an AvailabilitySlot entity to SlotResponse DTO
func SlotToResponse(slot *entity.AvailabilitySlot) *dto.SlotResponse {
	if slot == nil {
		return nil
	}

	response := &dto.SlotResponse{
		ID:        slot.ID,
		DoctorID:  slot.DoctorID,
		SlotDate:  slot.SlotDate.Format(DateLayout),
		StartTime: ClockTime(slot.StartTime),
		EndTime:   ClockTime(slot.EndTime),
		Capacity:  slot.Capacity,
		CreatedAt: slot.CreatedAt,
		UpdatedAt: slot.UpdatedAt,
	}

	if slot.Doctor.ID != uuid.Nil {
		response.Doctor = slot.Doctor.Name
	}

	return response
}

func SlotsToResponses(slots []entity.AvailabilitySlot) []dto.SlotResponse {
	responses := make([]dto.SlotResponse, len(slots))
	for i := range slots {
		responses[i] = *SlotToResponse(&slots[i])
	}
	return responses
}

// ClockTime trims a database time value ("09:00:00") to HH:MM.
func ClockTime(value string) string {
	if len(value) > 5 {
		return value[:5]
	}
	return value
}
