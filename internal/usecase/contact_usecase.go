package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"clinic-portal/internal/converter"
	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/domain/repository"
	"clinic-portal/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrSubmissionNotFound = errors.New("contact submission not found")
	ErrInvalidStatus      = errors.New("invalid status")
)

var submissionCSVHeader = []string{"Submitted At", "First Name", "Last Name", "Email", "Phone", "Status", "Message"}

type ContactUsecase interface {
	Submit(ctx context.Context, req *dto.ContactRequest) (*dto.ContactSubmissionResponse, error)
	ListSubmissions(ctx context.Context, filter *entity.ContactFilter) (*dto.ContactSubmissionListResponse, error)
	GetSubmission(ctx context.Context, id uuid.UUID) (*dto.ContactSubmissionResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req *dto.UpdateSubmissionStatusRequest) (*dto.ContactSubmissionResponse, error)
	DeleteSubmission(ctx context.Context, actor Actor, id uuid.UUID) error
	ExportCSV(ctx context.Context, filter *entity.ContactFilter) ([]byte, error)
}

type contactUsecase struct {
	log            *logrus.Logger
	submissionRepo repository.ContactSubmissionRepository
	auditService   service.AuditService
	mailer         service.Mailer
	notifyEmail    string
}

func NewContactUsecase(
	log *logrus.Logger,
	submissionRepo repository.ContactSubmissionRepository,
	auditService service.AuditService,
	mailer service.Mailer,
	notifyEmail string,
) ContactUsecase {
	return &contactUsecase{
		log:            log,
		submissionRepo: submissionRepo,
		auditService:   auditService,
		mailer:         mailer,
		notifyEmail:    notifyEmail,
	}
}

// Submit stores a public contact form message with status new.
func (u *contactUsecase) Submit(ctx context.Context, req *dto.ContactRequest) (*dto.ContactSubmissionResponse, error) {
	submission := &entity.ContactSubmission{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Message:   strings.TrimSpace(req.Message),
		Status:    entity.SubmissionStatusNew,
	}

	if err := u.submissionRepo.Create(ctx, submission); err != nil {
		u.log.Warnf("Failed to create contact submission: %+v", err)
		return nil, err
	}

	u.notify(ctx, submission)

	return converter.SubmissionToResponse(submission), nil
}

// notify is best effort: the submission is already stored.
func (u *contactUsecase) notify(ctx context.Context, submission *entity.ContactSubmission) {
	if u.notifyEmail == "" {
		return
	}

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err := u.mailer.Send(mailCtx, service.Email{
		To:      u.notifyEmail,
		Subject: "New contact message from " + submission.FullName(),
		HTML: fmt.Sprintf("<p><strong>%s</strong> &lt;%s&gt; wrote:</p><p>%s</p>",
			html.EscapeString(submission.FullName()),
			html.EscapeString(submission.Email),
			strings.ReplaceAll(html.EscapeString(submission.Message), "\n", "<br>"),
		),
		Text: fmt.Sprintf("%s <%s> wrote:\n\n%s\n", submission.FullName(), submission.Email, submission.Message),
	})
	if err != nil {
		u.log.Warnf("Failed to send contact notification for %s: %+v", submission.ID, err)
	}
}

func (u *contactUsecase) ListSubmissions(ctx context.Context, filter *entity.ContactFilter) (*dto.ContactSubmissionListResponse, error) {
	submissions, err := u.submissionRepo.FindAll(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to find contact submissions: %+v", err)
		return nil, err
	}

	return &dto.ContactSubmissionListResponse{
		Submissions: converter.SubmissionsToResponses(submissions),
		Total:       len(submissions),
	}, nil
}

func (u *contactUsecase) GetSubmission(ctx context.Context, id uuid.UUID) (*dto.ContactSubmissionResponse, error) {
	submission, err := u.submissionRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find contact submission %s: %+v", id, err)
		return nil, err
	}
	if submission == nil {
		return nil, ErrSubmissionNotFound
	}

	return converter.SubmissionToResponse(submission), nil
}

func (u *contactUsecase) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req *dto.UpdateSubmissionStatusRequest) (*dto.ContactSubmissionResponse, error) {
	status := entity.SubmissionStatus(req.Status)
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	existing, err := u.submissionRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find contact submission %s: %+v", id, err)
		return nil, err
	}
	if existing == nil {
		return nil, ErrSubmissionNotFound
	}

	rows, err := u.submissionRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		u.log.Warnf("Failed to update contact submission %s: %+v", id, err)
		return nil, err
	}
	if rows == 0 {
		return nil, ErrSubmissionNotFound
	}

	u.auditService.LogUpdate(ctx, actor.Ref(), entity.AuditActionSubmissionStatus, "contact_submission", id.String(), existing.Status, status)

	updated, err := u.submissionRepo.FindByID(ctx, id)
	if err != nil || updated == nil {
		u.log.Warnf("Failed to reload contact submission %s: %+v", id, err)
		existing.Status = status
		return converter.SubmissionToResponse(existing), nil
	}

	return converter.SubmissionToResponse(updated), nil
}

func (u *contactUsecase) DeleteSubmission(ctx context.Context, actor Actor, id uuid.UUID) error {
	existing, err := u.submissionRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find contact submission %s: %+v", id, err)
		return err
	}
	if existing == nil {
		return ErrSubmissionNotFound
	}

	rows, err := u.submissionRepo.Delete(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to delete contact submission %s: %+v", id, err)
		return err
	}
	if rows == 0 {
		return ErrSubmissionNotFound
	}

	u.auditService.LogDelete(ctx, actor.Ref(), entity.AuditActionSubmissionDelete, "contact_submission", id.String(), converter.SubmissionToResponse(existing))
	return nil
}

// ExportCSV renders the filtered submissions as CSV: one header row, then one
// row per submission in list order.
func (u *contactUsecase) ExportCSV(ctx context.Context, filter *entity.ContactFilter) ([]byte, error) {
	submissions, err := u.submissionRepo.FindAll(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to find contact submissions for export: %+v", err)
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(submissionCSVHeader); err != nil {
		return nil, err
	}
	for _, s := range submissions {
		record := []string{
			s.CreatedAt.UTC().Format(time.RFC3339),
			csvCell(s.FirstName),
			csvCell(s.LastName),
			csvCell(s.Email),
			csvCell(s.Phone),
			string(s.Status),
			csvCell(s.Message),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// csvCell quotes visitor text that a spreadsheet would otherwise run as a formula.
func csvCell(value string) string {
	if value != "" && strings.ContainsRune("=+-@\t\r", rune(value[0])) {
		return "'" + value
	}
	return value
}
