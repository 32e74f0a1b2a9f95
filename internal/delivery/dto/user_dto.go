package dto

// Request DTOs

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=client doctor admin"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=255"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// Response DTOs

type UserListResponse struct {
	Users []ProfileResponse `json:"users"`
	Total int               `json:"total"`
}
