package mailrelay

import (
	"encoding/json"
	"net/http"
	"strings"

	"clinic-portal/pkg/response"
	"clinic-portal/pkg/validator"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type emailRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=998"`
	HTML    string `json:"html" validate:"required_without=Text"`
	Text    string `json:"text"`
}

type emailResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Handler struct {
	sender    Sender
	validator *validator.CustomValidator
	log       *logrus.Logger
}

func NewHandler(sender Sender, validator *validator.CustomValidator, log *logrus.Logger) *Handler {
	return &Handler{
		sender:    sender,
		validator: validator,
		log:       log,
	}
}

// Routes mounts the relay endpoints on a fresh router.
func (h *Handler) Routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/email", h.SendEmail).Methods(http.MethodPost)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	return router
}

func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusBadRequest, emailResponse{Error: "invalid request body"})
		return
	}

	req.To = strings.TrimSpace(req.To)
	if err := h.validator.Validate(&req); err != nil {
		response.JSON(w, http.StatusBadRequest, emailResponse{Error: validationMessage(h.validator.FormatValidationErrors(err))})
		return
	}

	messageID, err := h.sender.Send(r.Context(), Message{
		To:      req.To,
		Subject: req.Subject,
		HTML:    req.HTML,
		Text:    req.Text,
	})
	if err != nil {
		h.log.Warnf("Failed to send email to %s: %+v", req.To, err)
		response.JSON(w, http.StatusInternalServerError, emailResponse{Error: err.Error()})
		return
	}

	h.log.WithFields(logrus.Fields{
		"to":         req.To,
		"message_id": messageID,
	}).Info("Email sent")

	response.JSON(w, http.StatusOK, emailResponse{Success: true, MessageID: messageID})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func validationMessage(fields map[string]string) string {
	for _, name := range []string{"to", "subject", "html"} {
		if msg, ok := fields[name]; ok {
			return msg
		}
	}
	return "invalid request"
}
