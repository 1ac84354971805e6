package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/models"
)

// SubmissionFilter narrows a submission listing.
type SubmissionFilter struct {
	AssignmentID uint
	// Filter is one of the models.Filter* constants.
	Filter int
	// UserIDs restricts the listing when non-nil.
	UserIDs []uint
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	Find(ctx context.Context, assignmentID, userID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	ListByUser(ctx context.Context, userID uint, assignmentIDs []uint) ([]models.Submission, error)
	DeleteAllForAssignment(ctx context.Context, assignmentID uint) (int64, error)
	DeleteAllForAssignments(ctx context.Context, assignmentIDs []uint) (int64, error)
	CountByMedia(ctx context.Context, mediaReferenceID string) (int64, error)
	CreateHistory(ctx context.Context, history *models.GradeHistory) error
	ListHistory(ctx context.Context, assignmentID, userID uint) ([]models.GradeHistory, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Find(ctx context.Context, assignmentID, userID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("assignment_id = ?", filter.AssignmentID)

	switch filter.Filter {
	case models.FilterRequiresGrading:
		query = query.Where("graded_at < updated_at")
	case models.FilterSubmitted:
		query = query.Where("updated_at > 0")
	}

	if filter.UserIDs != nil {
		if len(filter.UserIDs) == 0 {
			return []models.Submission{}, nil
		}
		query = query.Where("user_id IN ?", filter.UserIDs)
	}

	var submissions []models.Submission
	if err := query.Order("updated_at DESC").Order("user_id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListByUser(ctx context.Context, userID uint, assignmentIDs []uint) ([]models.Submission, error) {
	if len(assignmentIDs) == 0 {
		return []models.Submission{}, nil
	}

	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND assignment_id IN ?", userID, assignmentIDs).
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) DeleteAllForAssignment(ctx context.Context, assignmentID uint) (int64, error) {
	return r.DeleteAllForAssignments(ctx, []uint{assignmentID})
}

func (r *submissionRepository) DeleteAllForAssignments(ctx context.Context, assignmentIDs []uint) (int64, error) {
	if len(assignmentIDs) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id IN ?", assignmentIDs).Delete(&models.GradeHistory{}).Error; err != nil {
			return err
		}
		result := tx.Where("assignment_id IN ?", assignmentIDs).Delete(&models.Submission{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})

	return deleted, err
}

func (r *submissionRepository) CountByMedia(ctx context.Context, mediaReferenceID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("media_reference_id = ?", mediaReferenceID).
		Count(&count).Error
	return count, err
}

func (r *submissionRepository) CreateHistory(ctx context.Context, history *models.GradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *submissionRepository) ListHistory(ctx context.Context, assignmentID, userID uint) ([]models.GradeHistory, error) {
	var entries []models.GradeHistory
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		Order("graded_at DESC").
		Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
