package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/models"
)

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Assignment, error)
	ListByCourses(ctx context.Context, courseIDs []uint) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id uint) error
	ShiftDates(ctx context.Context, courseID uint, delta time.Duration) (int, error)
	CountUsingScale(ctx context.Context, scaleID uint) (int64, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Assignment, error) {
	return r.ListByCourses(ctx, []uint{courseID})
}

func (r *assignmentRepository) ListByCourses(ctx context.Context, courseIDs []uint) ([]models.Assignment, error) {
	if len(courseIDs) == 0 {
		return []models.Assignment{}, nil
	}

	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Order("course_id ASC").
		Order("id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Assignment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ShiftDates moves the available and due dates of every assignment in the course.
func (r *assignmentRepository) ShiftDates(ctx context.Context, courseID uint, delta time.Duration) (int, error) {
	shifted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assignments []models.Assignment
		if err := tx.Where("course_id = ?", courseID).Find(&assignments).Error; err != nil {
			return err
		}

		for i := range assignments {
			assignment := &assignments[i]
			if !assignment.HasDueDate() && !assignment.HasAvailableDate() {
				continue
			}
			if assignment.HasDueDate() {
				due := assignment.TimeDue.Add(delta)
				assignment.TimeDue = &due
			}
			if assignment.HasAvailableDate() {
				available := assignment.TimeAvailable.Add(delta)
				assignment.TimeAvailable = &available
			}
			if err := tx.Model(assignment).Select("time_due", "time_available").Updates(assignment).Error; err != nil {
				return err
			}
			shifted++
		}
		return nil
	})

	return shifted, err
}

// CountUsingScale counts assignments graded on the given scale.
func (r *assignmentRepository) CountUsingScale(ctx context.Context, scaleID uint) (int64, error) {
	if scaleID == 0 {
		return 0, nil
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("grade_max = ?", -int(scaleID)).
		Count(&count).Error
	return count, err
}
