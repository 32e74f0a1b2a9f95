package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrMailRelay = errors.New("mail relay rejected the message")

// Email is the payload accepted by the mail relay.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
}

// Mailer hands outgoing mail to the relay process.
type Mailer interface {
	Send(ctx context.Context, email Email) (string, error)
}

type relayMailer struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
}

type relayResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

func NewMailer(baseURL string, log *logrus.Logger) Mailer {
	return &relayMailer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

func (m *relayMailer) Send(ctx context.Context, email Email) (string, error) {
	body, err := json.Marshal(email)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/email", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call mail relay: %w", err)
	}
	defer resp.Body.Close()

	var result relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode mail relay response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || !result.Success {
		return "", fmt.Errorf("%w: status %d: %s", ErrMailRelay, resp.StatusCode, result.Error)
	}

	m.log.Debugf("Mail relay accepted message %s for %s", result.MessageID, email.To)
	return result.MessageID, nil
}
