package handler

import (
	"encoding/json"
	"net/http"

	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/usecase"
	"clinic-portal/pkg/response"
	"clinic-portal/pkg/validator"

	"github.com/google/uuid"
)

type AvailabilityHandler struct {
	availabilityUsecase usecase.AvailabilityUsecase
	validator           *validator.CustomValidator
}

func NewAvailabilityHandler(availabilityUsecase usecase.AvailabilityUsecase, validator *validator.CustomValidator) *AvailabilityHandler {
	return &AvailabilityHandler{
		availabilityUsecase: availabilityUsecase,
		validator:           validator,
	}
}

// CreateSlot handles creating an availability slot
// @Summary Create availability slot
// @Description Doctors create slots for themselves, admins must pass doctor_id. Capacity defaults to the doctor's default capacity.
// @Tags Admin Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateSlotRequest true "Slot"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/availability [post]
func (h *AvailabilityHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	var req dto.CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	slot, err := h.availabilityUsecase.CreateSlot(r.Context(), actor, &req)
	if err != nil {
		writeSlotError(w, err, "Failed to create slot")
		return
	}

	response.Success(w, http.StatusCreated, "Slot created successfully", slot)
}

// ListSlots handles listing availability slots
// @Summary List availability slots
// @Description Doctors only see their own slots
// @Tags Admin Availability
// @Security BearerAuth
// @Produce json
// @Param doctor_id query string false "Doctor ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admin/availability [get]
func (h *AvailabilityHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	filter := &entity.SlotFilter{}
	if raw := r.URL.Query().Get("doctor_id"); raw != "" {
		doctorID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid doctor ID")
			return
		}
		filter.DoctorID = &doctorID
	}

	var err error
	if filter.From, err = dateQuery(r, "from"); err != nil {
		response.BadRequest(w, "Invalid from date, use YYYY-MM-DD")
		return
	}
	if filter.To, err = dateQuery(r, "to"); err != nil {
		response.BadRequest(w, "Invalid to date, use YYYY-MM-DD")
		return
	}

	result, err := h.availabilityUsecase.ListSlots(r.Context(), actor, filter)
	if err != nil {
		writeSlotError(w, err, "Failed to get slots")
		return
	}

	response.List(w, "Slots retrieved successfully", result.Slots, result.Total)
}

// GetSlot handles getting one slot
// @Summary Get availability slot
// @Tags Admin Availability
// @Security BearerAuth
// @Produce json
// @Param id path int true "Slot ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/availability/{id} [get]
func (h *AvailabilityHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := intParam(w, r, "id", "slot")
	if !ok {
		return
	}

	slot, err := h.availabilityUsecase.GetSlot(r.Context(), actor, id)
	if err != nil {
		writeSlotError(w, err, "Failed to get slot")
		return
	}

	response.Success(w, http.StatusOK, "Slot retrieved successfully", slot)
}

// UpdateSlot handles editing a slot
// @Summary Update availability slot
// @Description Capacity cannot go below the number of booked appointments
// @Tags Admin Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Slot ID"
// @Param request body dto.UpdateSlotRequest true "Slot update"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/availability/{id} [put]
func (h *AvailabilityHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := intParam(w, r, "id", "slot")
	if !ok {
		return
	}

	var req dto.UpdateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	slot, err := h.availabilityUsecase.UpdateSlot(r.Context(), actor, id, &req)
	if err != nil {
		writeSlotError(w, err, "Failed to update slot")
		return
	}

	response.Success(w, http.StatusOK, "Slot updated successfully", slot)
}

// DeleteSlot handles deleting a slot
// @Summary Delete availability slot
// @Description Slots with active appointments cannot be deleted
// @Tags Admin Availability
// @Security BearerAuth
// @Produce json
// @Param id path int true "Slot ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/availability/{id} [delete]
func (h *AvailabilityHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := intParam(w, r, "id", "slot")
	if !ok {
		return
	}

	if err := h.availabilityUsecase.DeleteSlot(r.Context(), actor, id); err != nil {
		writeSlotError(w, err, "Failed to delete slot")
		return
	}

	response.Success(w, http.StatusOK, "Slot deleted successfully", nil)
}

func writeSlotError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case usecase.ErrSlotNotFound:
		response.NotFound(w, "Slot not found")
	case usecase.ErrDoctorNotFound:
		response.NotFound(w, "Doctor not found")
	case usecase.ErrForbidden:
		response.Forbidden(w, err.Error())
	case usecase.ErrSlotExists, usecase.ErrCapacityBelowBooked, usecase.ErrSlotHasAppointments:
		response.Conflict(w, err.Error())
	case usecase.ErrInvalidSlotDate, usecase.ErrInvalidTimeFormat, usecase.ErrInvalidTimeRange,
		usecase.ErrSlotInPast, usecase.ErrDoctorRequired:
		response.BadRequest(w, err.Error())
	default:
		response.InternalServerError(w, fallback)
	}
}
