package converter

import (
	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/service"
)

// ProfileToResponse converts a Profile entity to ProfileResponse DTO
func ProfileToResponse(profile *entity.Profile) *dto.ProfileResponse {
	if profile == nil {
		return nil
	}

	return &dto.ProfileResponse{
		ID:        profile.ID,
		Email:     profile.Email,
		FullName:  profile.FullName,
		Role:      string(profile.Role),
		IsActive:  profile.IsActive,
		Phone:     profile.Phone,
		IsAdmin:   profile.IsActive && profile.IsAdmin(),
		IsDoctor:  profile.IsActive && profile.IsDoctor(),
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}
}

func ProfilesToResponses(profiles []entity.Profile) []dto.ProfileResponse {
	responses := make([]dto.ProfileResponse, len(profiles))
	for i := range profiles {
		responses[i] = *ProfileToResponse(&profiles[i])
	}
	return responses
}

// ResolutionToResponse reports a resolved session. The derived flags come from
// the resolution, which may withhold privileges from a degraded profile.
func ResolutionToResponse(res service.Resolution) *dto.SessionResponse {
	response := &dto.SessionResponse{
		State:    string(res.State),
		Source:   string(res.Source),
		IsAdmin:  res.IsAdmin,
		IsDoctor: res.IsDoctor,
	}

	if res.Profile != nil {
		response.Profile = ProfileToResponse(res.Profile)
		response.Profile.IsAdmin = res.IsAdmin
		response.Profile.IsDoctor = res.IsDoctor
	}

	return response
}
