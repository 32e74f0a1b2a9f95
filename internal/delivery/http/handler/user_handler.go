package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/usecase"
	"clinic-portal/pkg/response"
	"clinic-portal/pkg/validator"
)

type UserHandler struct {
	userUsecase usecase.UserUsecase
	validator   *validator.CustomValidator
}

func NewUserHandler(userUsecase usecase.UserUsecase, validator *validator.CustomValidator) *UserHandler {
	return &UserHandler{
		userUsecase: userUsecase,
		validator:   validator,
	}
}

// ListUsers handles listing accounts
// @Summary List users
// @Description Newest first. Filter by role, active flag and a search over name and email.
// @Tags Admin Users
// @Security BearerAuth
// @Produce json
// @Param role query string false "client, doctor or admin"
// @Param active query bool false "Active accounts only (true) or deactivated only (false)"
// @Param q query string false "Search text"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := &entity.ProfileFilter{
		Role:   entity.Role(strings.TrimSpace(query.Get("role"))),
		Search: strings.TrimSpace(query.Get("q")),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		response.BadRequest(w, "Invalid role filter")
		return
	}
	if raw := query.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(w, "Invalid active filter")
			return
		}
		filter.IsActive = &active
	}

	result, err := h.userUsecase.ListUsers(r.Context(), filter)
	if err != nil {
		response.InternalServerError(w, "Failed to get users")
		return
	}

	response.List(w, "Users retrieved successfully", result.Users, result.Total)
}

// ChangeRole handles role assignment
// @Summary Change a user's role
// @Description Promoting to doctor also creates the doctor profile. Admins cannot change their own role.
// @Tags Admin Users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body dto.ChangeRoleRequest true "Role change"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id}/role [patch]
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "user")
	if !ok {
		return
	}

	var req dto.ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	user, err := h.userUsecase.ChangeRole(r.Context(), actor, id, &req)
	if err != nil {
		switch err {
		case usecase.ErrUserNotFound:
			response.NotFound(w, "User not found")
		case usecase.ErrInvalidRole, usecase.ErrSelfRoleChange:
			response.BadRequest(w, err.Error())
		default:
			response.InternalServerError(w, "Failed to change role")
		}
		return
	}

	response.Success(w, http.StatusOK, "Role updated successfully", user)
}

// SetActive handles account activation
// @Summary Activate or deactivate a user
// @Description Deactivation signs the user out everywhere. Admins cannot deactivate themselves.
// @Tags Admin Users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body dto.SetActiveRequest true "Activation change"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id}/active [patch]
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "user")
	if !ok {
		return
	}

	var req dto.SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	user, err := h.userUsecase.SetActive(r.Context(), actor, id, &req)
	if err != nil {
		switch err {
		case usecase.ErrUserNotFound:
			response.NotFound(w, "User not found")
		case usecase.ErrSelfDeactivation:
			response.BadRequest(w, err.Error())
		default:
			response.InternalServerError(w, "Failed to update user")
		}
		return
	}

	response.Success(w, http.StatusOK, "User updated successfully", user)
}
