package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/usecase"
	"clinic-portal/pkg/response"
	"clinic-portal/pkg/validator"
)

type ContactHandler struct {
	contactUsecase usecase.ContactUsecase
	validator      *validator.CustomValidator
	now            func() time.Time
}

func NewContactHandler(contactUsecase usecase.ContactUsecase, validator *validator.CustomValidator) *ContactHandler {
	return &ContactHandler{
		contactUsecase: contactUsecase,
		validator:      validator,
		now:            time.Now,
	}
}

// Submit handles the public contact form
// @Summary Send a contact message
// @Description Store a message from the public contact form. The message must be at least 10 characters.
// @Tags Contact
// @Accept json
// @Produce json
// @Param request body dto.ContactRequest true "Contact request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /contact [post]
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	// Length rules apply to what will be stored.
	req.Message = strings.TrimSpace(req.Message)

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	submission, err := h.contactUsecase.Submit(r.Context(), &req)
	if err != nil {
		response.InternalServerError(w, "Failed to send message")
		return
	}

	response.Success(w, http.StatusCreated, "Message sent successfully", submission)
}

// ListSubmissions handles listing contact messages
// @Summary List contact messages
// @Description Newest first. Filter by status and a case-insensitive search over names, email and message.
// @Tags Admin Contact Messages
// @Security BearerAuth
// @Produce json
// @Param status query string false "new, read, responded or archived"
// @Param q query string false "Search text"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admin/contact-messages [get]
func (h *ContactHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	filter, ok := contactFilter(w, r)
	if !ok {
		return
	}

	result, err := h.contactUsecase.ListSubmissions(r.Context(), filter)
	if err != nil {
		response.InternalServerError(w, "Failed to get contact messages")
		return
	}

	response.List(w, "Contact messages retrieved successfully", result.Submissions, result.Total)
}

// GetSubmission handles getting one contact message
// @Summary Get contact message
// @Tags Admin Contact Messages
// @Security BearerAuth
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/contact-messages/{id} [get]
func (h *ContactHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "submission")
	if !ok {
		return
	}

	submission, err := h.contactUsecase.GetSubmission(r.Context(), id)
	if err != nil {
		switch err {
		case usecase.ErrSubmissionNotFound:
			response.NotFound(w, "Contact message not found")
		default:
			response.InternalServerError(w, "Failed to get contact message")
		}
		return
	}

	response.Success(w, http.StatusOK, "Contact message retrieved successfully", submission)
}

// UpdateStatus handles moving a contact message through its workflow
// @Summary Update contact message status
// @Tags Admin Contact Messages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param request body dto.UpdateSubmissionStatusRequest true "Status update"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/contact-messages/{id}/status [patch]
func (h *ContactHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "submission")
	if !ok {
		return
	}

	var req dto.UpdateSubmissionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	submission, err := h.contactUsecase.UpdateStatus(r.Context(), actor, id, &req)
	if err != nil {
		switch err {
		case usecase.ErrSubmissionNotFound:
			response.NotFound(w, "Contact message not found")
		case usecase.ErrInvalidStatus:
			response.BadRequest(w, err.Error())
		default:
			response.InternalServerError(w, "Failed to update contact message")
		}
		return
	}

	response.Success(w, http.StatusOK, "Contact message updated successfully", submission)
}

// DeleteSubmission handles removing a contact message
// @Summary Delete contact message
// @Tags Admin Contact Messages
// @Security BearerAuth
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/contact-messages/{id} [delete]
func (h *ContactHandler) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "submission")
	if !ok {
		return
	}

	if err := h.contactUsecase.DeleteSubmission(r.Context(), actor, id); err != nil {
		switch err {
		case usecase.ErrSubmissionNotFound:
			response.NotFound(w, "Contact message not found")
		default:
			response.InternalServerError(w, "Failed to delete contact message")
		}
		return
	}

	response.Success(w, http.StatusOK, "Contact message deleted successfully", nil)
}

// ExportCSV handles downloading the filtered contact messages
// @Summary Export contact messages
// @Description CSV with one header row and one row per message matching the filters
// @Tags Admin Contact Messages
// @Security BearerAuth
// @Produce text/csv
// @Param status query string false "new, read, responded or archived"
// @Param q query string false "Search text"
// @Success 200 {file} file
// @Failure 400 {object} response.Response
// @Router /admin/contact-messages/export [get]
func (h *ContactHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, ok := contactFilter(w, r)
	if !ok {
		return
	}

	data, err := h.contactUsecase.ExportCSV(r.Context(), filter)
	if err != nil {
		response.InternalServerError(w, "Failed to export contact messages")
		return
	}

	filename := fmt.Sprintf("contact-messages-%s.csv", h.now().UTC().Format("2006-01-02"))
	response.Attachment(w, "text/csv; charset=utf-8", filename, data)
}

func contactFilter(w http.ResponseWriter, r *http.Request) (*entity.ContactFilter, bool) {
	query := r.URL.Query()
	filter := &entity.ContactFilter{
		Status: entity.SubmissionStatus(strings.TrimSpace(query.Get("status"))),
		Search: strings.TrimSpace(query.Get("q")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		response.BadRequest(w, "Invalid status filter")
		return nil, false
	}
	return filter, true
}
