package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/models"
)

// EnrollmentRepository answers course membership questions.
type EnrollmentRepository interface {
	ListUserIDs(ctx context.Context, courseID uint, roles []string) ([]uint, error)
	ListUsers(ctx context.Context, courseID uint, roles []string) ([]models.User, error)
	ListCourseIDs(ctx context.Context, userID uint) ([]uint, error)
	HasRole(ctx context.Context, courseID, userID uint, roles []string) (bool, error)
	ListGroupMemberIDs(ctx context.Context, groupIDs []uint) ([]uint, error)
	ListUserGroupIDs(ctx context.Context, courseID, userID uint) ([]uint, error)
	ListUsersGroupIDs(ctx context.Context, courseID uint, userIDs []uint) (map[uint][]uint, error)
	GetUser(ctx context.Context, id uint) (models.User, error)
	ListUsersByID(ctx context.Context, ids []uint) ([]models.User, error)
	GetCourse(ctx context.Context, id uint) (models.Course, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs a GORM-backed enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) activeEnrollments(ctx context.Context, courseID uint, roles []string) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("course_id = ? AND active = ?", courseID, true)
	if len(roles) > 0 {
		query = query.Where("role IN ?", roles)
	}
	return query
}

func (r *enrollmentRepository) ListUserIDs(ctx context.Context, courseID uint, roles []string) ([]uint, error) {
	var ids []uint
	if err := r.activeEnrollments(ctx, courseID, roles).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *enrollmentRepository) ListUsers(ctx context.Context, courseID uint, roles []string) ([]models.User, error) {
	ids, err := r.ListUserIDs(ctx, courseID, roles)
	if err != nil {
		return nil, err
	}

	return r.ListUsersByID(ctx, ids)
}

func (r *enrollmentRepository) ListCourseIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND active = ?", userID, true).
		Distinct("course_id").
		Order("course_id ASC").
		Pluck("course_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *enrollmentRepository) HasRole(ctx context.Context, courseID, userID uint, roles []string) (bool, error) {
	var count int64
	if err := r.activeEnrollments(ctx, courseID, roles).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *enrollmentRepository) ListGroupMemberIDs(ctx context.Context, groupIDs []uint) ([]uint, error) {
	if len(groupIDs) == 0 {
		return []uint{}, nil
	}

	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id IN ?", groupIDs).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *enrollmentRepository) ListUserGroupIDs(ctx context.Context, courseID, userID uint) ([]uint, error) {
	groups, err := r.ListUsersGroupIDs(ctx, courseID, []uint{userID})
	if err != nil {
		return nil, err
	}

	return groups[userID], nil
}

func (r *enrollmentRepository) ListUsersGroupIDs(ctx context.Context, courseID uint, userIDs []uint) (map[uint][]uint, error) {
	result := make(map[uint][]uint, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	type membership struct {
		GroupID uint
		UserID  uint
	}

	var rows []membership
	if err := r.db.WithContext(ctx).
		Table("course_group_members AS gm").
		Select("gm.group_id, gm.user_id").
		Joins("JOIN course_groups AS g ON g.id = gm.group_id").
		Where("g.course_id = ? AND gm.user_id IN ?", courseID, userIDs).
		Order("gm.group_id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.UserID] = append(result[row.UserID], row.GroupID)
	}

	return result, nil
}

func (r *enrollmentRepository) GetUser(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *enrollmentRepository) ListUsersByID(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

func (r *enrollmentRepository) GetCourse(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}
