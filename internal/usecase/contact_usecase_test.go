package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"clinic-portal/internal/delivery/dto"
	"clinic-portal/internal/domain/entity"
	"clinic-portal/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContactFixture(notifyEmail string) (ContactUsecase, *fakeSubmissionRepo, *fakeMailer, *fakeAuditRepo) {
	repo := &fakeSubmissionRepo{}
	mailer := &fakeMailer{}
	audit := &fakeAuditRepo{}
	uc := NewContactUsecase(testLogger(), repo, service.NewAuditService(testLogger(), audit), mailer, notifyEmail)
	return uc, repo, mailer, audit
}

func TestContactUsecase_Submit(t *testing.T) {
	uc, repo, mailer, _ := newContactFixture("front-desk@clinic.example")

	resp, err := uc.Submit(context.Background(), &dto.ContactRequest{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Message:   "I would like to book a check-up.",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", resp.Status)
	assert.Equal(t, "Ada", resp.FirstName)

	stored, err := repo.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.SubmissionStatusNew, stored.Status)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "front-desk@clinic.example", sent[0].To)
	assert.Contains(t, sent[0].Subject, "Ada Lovelace")
}

func TestContactUsecase_SubmitSurvivesMailFailure(t *testing.T) {
	uc, repo, mailer, _ := newContactFixture("front-desk@clinic.example")
	mailer.err = errors.New("relay down")

	_, err := uc.Submit(context.Background(), &dto.ContactRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Message:   "I would like to book a check-up.",
	})
	require.NoError(t, err)
	assert.Len(t, repo.submissions, 1)
}

func TestContactUsecase_UpdateStatus(t *testing.T) {
	uc, repo, _, audit := newContactFixture("")
	ctx := context.Background()
	admin := Actor{ID: uuid.New(), IsAdmin: true}

	submission := &entity.ContactSubmission{FirstName: "Ada", LastName: "L", Email: "ada@example.com", Message: "hello there!", Status: entity.SubmissionStatusNew}
	require.NoError(t, repo.Create(ctx, submission))

	resp, err := uc.UpdateStatus(ctx, admin, submission.ID, &dto.UpdateSubmissionStatusRequest{Status: "responded"})
	require.NoError(t, err)
	assert.Equal(t, "responded", resp.Status)
	assert.Equal(t, []string{entity.AuditActionSubmissionStatus}, audit.Actions())

	_, err = uc.UpdateStatus(ctx, admin, submission.ID, &dto.UpdateSubmissionStatusRequest{Status: "spam"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = uc.UpdateStatus(ctx, admin, uuid.New(), &dto.UpdateSubmissionStatusRequest{Status: "read"})
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestContactUsecase_DeleteSubmission(t *testing.T) {
	uc, repo, _, _ := newContactFixture("")
	ctx := context.Background()
	admin := Actor{ID: uuid.New(), IsAdmin: true}

	submission := &entity.ContactSubmission{FirstName: "Ada", Email: "ada@example.com", Message: "hello there!"}
	require.NoError(t, repo.Create(ctx, submission))

	require.NoError(t, uc.DeleteSubmission(ctx, admin, submission.ID))
	assert.ErrorIs(t, uc.DeleteSubmission(ctx, admin, submission.ID), ErrSubmissionNotFound)
}

func TestContactUsecase_ExportCSV(t *testing.T) {
	uc, repo, _, _ := newContactFixture("")
	ctx := context.Background()

	older := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	require.NoError(t, repo.Create(ctx, &entity.ContactSubmission{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Message: "Line one,\nline \"two\"", Status: entity.SubmissionStatusNew, CreatedAt: older,
	}))
	require.NoError(t, repo.Create(ctx, &entity.ContactSubmission{
		FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", Phone: "555-0100",
		Message: "Archived question", Status: entity.SubmissionStatusArchived, CreatedAt: newer,
	}))

	t.Run("all rows newest first", func(t *testing.T) {
		data, err := uc.ExportCSV(ctx, &entity.ContactFilter{})
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, submissionCSVHeader, records[0])
		assert.Equal(t, []string{newer.Format(time.RFC3339), "Alan", "Turing", "alan@example.com", "555-0100", "archived", "Archived question"}, records[1])
		assert.Equal(t, "Line one,\nline \"two\"", records[2][6])
	})

	t.Run("filtered", func(t *testing.T) {
		data, err := uc.ExportCSV(ctx, &entity.ContactFilter{Status: entity.SubmissionStatusNew})
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Ada", records[1][1])
	})

	t.Run("empty result keeps header", func(t *testing.T) {
		data, err := uc.ExportCSV(ctx, &entity.ContactFilter{Status: entity.SubmissionStatusRead})
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestContactUsecase_ExportCSVNeutralizesFormulas(t *testing.T) {
	uc, repo, _, _ := newContactFixture("")
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.ContactSubmission{
		FirstName: "=HYPERLINK(\"http://evil.example\")", LastName: "@SUM(A1)", Email: "eve@example.com",
		Phone: "+1 555 0100", Message: "-2+3", Status: entity.SubmissionStatusNew, CreatedAt: time.Now(),
	}))

	data, err := uc.ExportCSV(ctx, &entity.ContactFilter{})
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "'=HYPERLINK(\"http://evil.example\")", records[1][1])
	assert.Equal(t, "'@SUM(A1)", records[1][2])
	assert.Equal(t, "eve@example.com", records[1][3])
	assert.Equal(t, "'+1 555 0100", records[1][4])
	assert.Equal(t, "'-2+3", records[1][6])
}
