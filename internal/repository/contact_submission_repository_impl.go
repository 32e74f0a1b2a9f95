package repository

import (
	"context"
	"errors"

	"clinic-portal/internal/domain/entity"
	domainRepo "clinic-portal/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type contactSubmissionRepository struct {
	db *gorm.DB
}

func NewContactSubmissionRepository(db *gorm.DB) domainRepo.ContactSubmissionRepository {
	return &contactSubmissionRepository{db: db}
}

func (r *contactSubmissionRepository) Create(ctx context.Context, submission *entity.ContactSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *contactSubmissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ContactSubmission, error) {
	var submission entity.ContactSubmission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

func (r *contactSubmissionRepository) FindAll(ctx context.Context, filter *entity.ContactFilter) ([]entity.ContactSubmission, error) {
	var submissions []entity.ContactSubmission
	query := r.db.WithContext(ctx).Model(&entity.ContactSubmission{})

	if filter != nil {
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.Search != "" {
			like := containsPattern(filter.Search)
			query = query.Where(
				"first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ? OR message ILIKE ?",
				like, like, like, like,
			)
		}
	}

	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// UpdateStatus returns affected rows: 0 means the submission does not exist.
func (r *contactSubmissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.SubmissionStatus) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.ContactSubmission{}).
		Where("id = ?", id).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *contactSubmissionRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.ContactSubmission{})
	return result.RowsAffected, result.Error
}

func (r *contactSubmissionRepository) CountByStatus(ctx context.Context) (map[entity.SubmissionStatus]int64, error) {
	var rows []struct {
		Status entity.SubmissionStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&entity.ContactSubmission{}).
		Select("status, COUNT(*) as total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entity.SubmissionStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
