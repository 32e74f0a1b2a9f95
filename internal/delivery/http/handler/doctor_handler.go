package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/usecase"
	"clinic-portal/pkg/response"
	"clinic-portal/pkg/validator"
)

type DoctorHandler struct {
	doctorUsecase       usecase.DoctorUsecase
	availabilityUsecase usecase.AvailabilityUsecase
	validator           *validator.CustomValidator
}

func NewDoctorHandler(doctorUsecase usecase.DoctorUsecase, availabilityUsecase usecase.AvailabilityUsecase, validator *validator.CustomValidator) *DoctorHandler {
	return &DoctorHandler{
		doctorUsecase:       doctorUsecase,
		availabilityUsecase: availabilityUsecase,
		validator:           validator,
	}
}

func doctorFilter(r *http.Request) *entity.DoctorFilter {
	query := r.URL.Query()
	return &entity.DoctorFilter{
		Search:         strings.TrimSpace(query.Get("q")),
		Specialization: strings.TrimSpace(query.Get("specialization")),
	}
}

// ListPublicDoctors handles the public doctor directory
// @Summary List doctors
// @Description Active doctors only
// @Tags Doctors
// @Produce json
// @Param q query string false "Search text"
// @Param specialization query string false "Specialization"
// @Success 200 {object} response.Response
// @Router /doctors [get]
func (h *DoctorHandler) ListPublicDoctors(w http.ResponseWriter, r *http.Request) {
	result, err := h.doctorUsecase.ListPublicDoctors(r.Context(), doctorFilter(r))
	if err != nil {
		response.InternalServerError(w, "Failed to get doctors")
		return
	}

	response.List(w, "Doctors retrieved successfully", result.Doctors, result.Total)
}

// GetPublicDoctor handles a public doctor page
// @Summary Get doctor
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /doctors/{id} [get]
func (h *DoctorHandler) GetPublicDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "doctor")
	if !ok {
		return
	}

	doctor, err := h.doctorUsecase.GetPublicDoctor(r.Context(), id)
	if err != nil {
		switch err {
		case usecase.ErrDoctorNotFound:
			response.NotFound(w, "Doctor not found")
		default:
			response.InternalServerError(w, "Failed to get doctor")
		}
		return
	}

	response.Success(w, http.StatusOK, "Doctor retrieved successfully", doctor)
}

// ListOpenSlots handles the bookable slots of a doctor
// @Summary List bookable slots
// @Description Upcoming slots of the doctor that still have free places
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /doctors/{id}/slots [get]
func (h *DoctorHandler) ListOpenSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "doctor")
	if !ok {
		return
	}

	result, err := h.availabilityUsecase.ListOpenSlots(r.Context(), id)
	if err != nil {
		switch err {
		case usecase.ErrDoctorNotFound:
			response.NotFound(w, "Doctor not found")
		default:
			response.InternalServerError(w, "Failed to get slots")
		}
		return
	}

	response.List(w, "Slots retrieved successfully", result.Slots, result.Total)
}

// ListDoctors handles the staff doctor list
// @Summary List doctors (staff)
// @Description Includes deactivated doctors
// @Tags Admin Doctors
// @Security BearerAuth
// @Produce json
// @Param q query string false "Search text"
// @Param specialization query string false "Specialization"
// @Success 200 {object} response.Response
// @Router /admin/doctors [get]
func (h *DoctorHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	result, err := h.doctorUsecase.ListDoctors(r.Context(), doctorFilter(r))
	if err != nil {
		response.InternalServerError(w, "Failed to get doctors")
		return
	}

	response.List(w, "Doctors retrieved successfully", result.Doctors, result.Total)
}

// GetDoctor handles the staff doctor view
// @Summary Get doctor (staff)
// @Tags Admin Doctors
// @Security BearerAuth
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/doctors/{id} [get]
func (h *DoctorHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "doctor")
	if !ok {
		return
	}

	doctor, err := h.doctorUsecase.GetDoctor(r.Context(), id)
	if err != nil {
		switch err {
		case usecase.ErrDoctorNotFound:
			response.NotFound(w, "Doctor not found")
		default:
			response.InternalServerError(w, "Failed to get doctor")
		}
		return
	}

	response.Success(w, http.StatusOK, "Doctor retrieved successfully", doctor)
}

// UpdateDoctor handles editing a doctor profile
// @Summary Update doctor
// @Description Admins may edit any doctor, doctors only themselves
// @Tags Admin Doctors
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Doctor ID"
// @Param request body dto.UpdateDoctorRequest true "Doctor update"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/doctors/{id} [put]
func (h *DoctorHandler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "doctor")
	if !ok {
		return
	}

	var req dto.UpdateDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	doctor, err := h.doctorUsecase.UpdateDoctor(r.Context(), actor, id, &req)
	if err != nil {
		h.writeUpdateError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Doctor updated successfully", doctor)
}

// GetMyDoctorProfile handles a doctor's own profile
// @Summary Get own doctor profile
// @Tags Admin Doctors
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/doctors/me [get]
func (h *DoctorHandler) GetMyDoctorProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	doctor, err := h.doctorUsecase.GetMyDoctorProfile(r.Context(), actor)
	if err != nil {
		switch err {
		case usecase.ErrDoctorNotFound:
			response.NotFound(w, "Doctor profile not found")
		default:
			response.InternalServerError(w, "Failed to get doctor profile")
		}
		return
	}

	response.Success(w, http.StatusOK, "Doctor profile retrieved successfully", doctor)
}

// UpdateMyDoctorProfile handles a doctor editing their own profile
// @Summary Update own doctor profile
// @Tags Admin Doctors
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.UpdateDoctorRequest true "Doctor update"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/doctors/me [put]
func (h *DoctorHandler) UpdateMyDoctorProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	var req dto.UpdateDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	doctor, err := h.doctorUsecase.UpdateMyDoctorProfile(r.Context(), actor, &req)
	if err != nil {
		h.writeUpdateError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Doctor profile updated successfully", doctor)
}

func (h *DoctorHandler) writeUpdateError(w http.ResponseWriter, err error) {
	switch err {
	case usecase.ErrDoctorNotFound:
		response.NotFound(w, "Doctor not found")
	case usecase.ErrForbidden:
		response.Forbidden(w, err.Error())
	case usecase.ErrInvalidFee:
		response.BadRequest(w, err.Error())
	default:
		response.InternalServerError(w, "Failed to update doctor")
	}
}
