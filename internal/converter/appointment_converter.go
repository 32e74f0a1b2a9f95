package converter

import (
	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:          appointment.ID,
		Reference:   appointment.Reference,
		QueueNumber: appointment.QueueNumber,
		Status:      string(appointment.Status),
		Notes:       appointment.Notes,
		PatientID:   appointment.PatientID,
		PatientName: appointment.Patient.FullName,
		CreatedAt:   appointment.CreatedAt,
		UpdatedAt:   appointment.UpdatedAt,
	}

	// Include slot info if loaded
	if appointment.Slot.ID != 0 {
		response.Slot = SlotToResponse(&appointment.Slot)
	}

	return response
}

func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
