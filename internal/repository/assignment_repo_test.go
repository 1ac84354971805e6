package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vidassign-api/internal/models"
)

func TestAssignmentRepositoryShiftDates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	available := due.Add(-72 * time.Hour)
	dated := models.Assignment{CourseID: 4, Name: "Dated", GradeMax: 10, TimeDue: &due, TimeAvailable: &available, GroupMode: models.GroupModeNone}
	undated := models.Assignment{CourseID: 4, Name: "Open", GradeMax: 10, GroupMode: models.GroupModeNone}
	otherCourse := models.Assignment{CourseID: 5, Name: "Elsewhere", GradeMax: 10, TimeDue: &due, GroupMode: models.GroupModeNone}
	require.NoError(t, repo.Create(ctx, &dated))
	require.NoError(t, repo.Create(ctx, &undated))
	require.NoError(t, repo.Create(ctx, &otherCourse))

	shifted, err := repo.ShiftDates(ctx, 4, 7*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, shifted)

	reloaded, err := repo.GetByID(ctx, dated.ID)
	require.NoError(t, err)
	require.True(t, reloaded.TimeDue.Equal(due.Add(7*24*time.Hour)))
	require.True(t, reloaded.TimeAvailable.Equal(available.Add(7*24*time.Hour)))

	untouched, err := repo.GetByID(ctx, otherCourse.ID)
	require.NoError(t, err)
	require.True(t, untouched.TimeDue.Equal(due))
}

func TestAssignmentRepositoryCountUsingScale(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Assignment{CourseID: 1, Name: "Scale", GradeMax: -3, GroupMode: models.GroupModeNone}))
	require.NoError(t, repo.Create(ctx, &models.Assignment{CourseID: 1, Name: "Points", GradeMax: 3, GroupMode: models.GroupModeNone}))

	count, err := repo.CountUsingScale(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	count, err = repo.CountUsingScale(ctx, 0)
	require.NoError(t, err)
	require.Zero(t, count)
}
