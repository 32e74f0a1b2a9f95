package converter

import (
	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
)

func SubmissionToResponse(submission *entity.ContactSubmission) *dto.ContactSubmissionResponse {
	if submission == nil {
		return nil
	}

	return &dto.ContactSubmissionResponse{
		ID:        submission.ID,
		FirstName: submission.FirstName,
		LastName:  submission.LastName,
		Email:     submission.Email,
		Phone:     submission.Phone,
		Message:   submission.Message,
		Status:    string(submission.Status),
		CreatedAt: submission.CreatedAt,
		UpdatedAt: submission.UpdatedAt,
	}
}

func SubmissionsToResponses(submissions []entity.ContactSubmission) []dto.ContactSubmissionResponse {
	responses := make([]dto.ContactSubmissionResponse, len(submissions))
	for i := range submissions {
		responses[i] = *SubmissionToResponse(&submissions[i])
	}
	return responses
}
