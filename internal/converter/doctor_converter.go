package converter

import (
	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"

	"github.com/google/uuid"
)

// DoctorProfileToResponse converts a DoctorProfile entity to DoctorResponse DTO
func DoctorProfileToResponse(doctor *entity.DoctorProfile) *dto.DoctorResponse {
	if doctor == nil {
		return nil
	}

	response := &dto.DoctorResponse{
		ID:                  doctor.ID,
		UserID:              doctor.UserID,
		Name:                doctor.Name,
		Specialization:      doctor.Specialization,
		Bio:                 doctor.Bio,
		SlotDurationMinutes: doctor.SlotDurationMinutes,
		DefaultCapacity:     doctor.DefaultCapacity,
		ConsultationFee:     doctor.ConsultationFee,
		CreatedAt:           doctor.CreatedAt,
		UpdatedAt:           doctor.UpdatedAt,
	}

	// Include account info if loaded
	if doctor.User.ID != uuid.Nil {
		response.Email = doctor.User.Email
		response.IsActive = doctor.User.IsActive
	}

	return response
}

func DoctorProfilesToResponses(doctors []entity.DoctorProfile) []dto.DoctorResponse {
	responses := make([]dto.DoctorResponse, len(doctors))
	for i := range doctors {
		responses[i] = *DoctorProfileToResponse(&doctors[i])
	}
	return responses
}

func DoctorToPublicResponse(doctor *entity.DoctorProfile) *dto.PublicDoctorResponse {
	if doctor == nil {
		return nil
	}

	return &dto.PublicDoctorResponse{
		ID:              doctor.ID,
		Name:            doctor.Name,
		Specialization:  doctor.Specialization,
		Bio:             doctor.Bio,
		ConsultationFee: doctor.ConsultationFee,
	}
}

func DoctorsToPublicResponses(doctors []entity.DoctorProfile) []dto.PublicDoctorResponse {
	responses := make([]dto.PublicDoctorResponse, len(doctors))
	for i := range doctors {
		responses[i] = *DoctorToPublicResponse(&doctors[i])
	}
	return responses
}
