package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/policy"
	"github.com/noah-isme/vidassign-api/internal/repository"
)

var studentRoles = []string{models.RoleStudent}

// Viewer identifies who is looking at a listing.
type Viewer struct {
	UserID uint
	Role   string
}

// IsAdmin reports whether the viewer holds the site admin role.
func (v Viewer) IsAdmin() bool {
	return v.Role == models.RoleAdmin
}

// SeesAllGroups reports whether the viewer bypasses separate group restrictions.
func (v Viewer) SeesAllGroups() bool {
	return v.IsAdmin()
}

// SummaryInvalidator drops cached grading summaries after writes.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, assignmentID uint)
}

// ListingService builds grader listings and course overviews.
type ListingService interface {
	SummaryInvalidator
	List(ctx context.Context, req dto.SubmissionListRequest, viewer Viewer, now time.Time) (dto.SubmissionListResponse, error)
	Summary(ctx context.Context, assignmentID uint, viewer Viewer, now time.Time) (dto.GradingSummaryResponse, error)
	CourseOverview(ctx context.Context, courseID uint, viewer Viewer, now time.Time) ([]dto.CourseOverviewItem, error)
}

type listingService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	enrollments repository.EnrollmentRepository
	access      courseAccess
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

type summaryCounts struct {
	Participants    int `json:"participants"`
	Submitted       int `json:"submitted"`
	RequiresGrading int `json:"requires_grading"`
}

// NewListingService constructs the listing service. cache may be nil.
func NewListingService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, enrollments repository.EnrollmentRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ListingService {
	return &listingService{
		assignments: assignments,
		submissions: submissions,
		enrollments: enrollments,
		access:      courseAccess{enrollments: enrollments},
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "listing_service").Logger(),
	}
}

func summaryCacheKey(assignmentID uint) string {
	return fmt.Sprintf("vidassign:summary:%d", assignmentID)
}

func (s *listingService) loadAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

type listingRow struct {
	userID     uint
	submission *models.Submission
}

func (r listingRow) updatedAt() int64 {
	if r.submission == nil {
		return 0
	}
	return r.submission.UpdatedAt
}

func (s *listingService) List(ctx context.Context, req dto.SubmissionListRequest, viewer Viewer, now time.Time) (dto.SubmissionListResponse, error) {
	if req.PageSize <= 0 {
		return dto.SubmissionListResponse{}, newValidationError("page_size", "must be greater than zero")
	}
	if req.Page < 0 {
		return dto.SubmissionListResponse{}, newValidationError("page", "must not be negative")
	}
	if req.Filter < models.FilterAll || req.Filter > models.FilterNotSubmittedYet {
		return dto.SubmissionListResponse{}, newValidationError("filter", "unknown filter")
	}
	page := req.Page
	if page == 0 {
		page = 1
	}

	assignment, err := s.loadAssignment(ctx, req.AssignmentID)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}
	if err := s.access.requireGrader(ctx, assignment.CourseID, viewer); err != nil {
		return dto.SubmissionListResponse{}, err
	}

	students, err := s.visibleStudents(ctx, assignment, req.GroupID, viewer)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	rows, err := s.buildRows(ctx, assignment.ID, req.Filter, students)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	total := len(rows)
	start := (page - 1) * req.PageSize
	if start > total {
		start = total
	}
	end := start + req.PageSize
	if end > total {
		end = total
	}
	pageRows := rows[start:end]

	userIDs := make([]uint, 0, len(pageRows))
	for _, row := range pageRows {
		userIDs = append(userIDs, row.userID)
	}
	users, err := s.enrollments.ListUsersByID(ctx, userIDs)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}
	usersByID := make(map[uint]models.User, len(users))
	for _, user := range users {
		usersByID[user.ID] = user
	}

	items := make([]dto.SubmissionRow, 0, len(pageRows))
	for _, row := range pageRows {
		items = append(items, newSubmissionRow(assignment, row, usersByID[row.userID]))
	}

	return dto.SubmissionListResponse{
		Filter:     req.Filter,
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, req.PageSize, int64(total)),
	}, nil
}

func newSubmissionRow(assignment models.Assignment, row listingRow, user models.User) dto.SubmissionRow {
	item := dto.SubmissionRow{
		UserID:   row.userID,
		Username: user.Username,
		FullName: user.FullName,
		Status:   dto.RowStatusNotSubmitted,
	}
	if row.submission == nil {
		return item
	}

	submission := *row.submission
	response := dto.NewSubmissionResponse(submission)
	item.Submission = &response
	item.RequiresGrading = submission.RequiresGrading()

	switch {
	case submission.HasGrade() && !submission.RequiresGrading():
		item.Status = dto.RowStatusGraded
	case submission.IsSubmitted():
		item.Status = dto.RowStatusSubmitted
	}

	if lateness, ok := policy.ComputeLateness(submission.UpdatedAt, assignment.TimeDue); ok {
		item.Lateness = &dto.LatenessResponse{Late: lateness.Late, Seconds: int64(lateness.Duration / time.Second)}
	}

	return item
}

// enrolledStudents never returns nil so that it always restricts submission queries.
func (s *listingService) enrolledStudents(ctx context.Context, courseID uint) ([]uint, error) {
	students, err := s.enrollments.ListUserIDs(ctx, courseID, studentRoles)
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []uint{}
	}
	return students, nil
}

// visibleStudents returns enrolled students, narrowed by group filters and
// by the viewer's own groups in separate groups mode.
func (s *listingService) visibleStudents(ctx context.Context, assignment models.Assignment, groupID uint, viewer Viewer) ([]uint, error) {
	students, err := s.enrolledStudents(ctx, assignment.CourseID)
	if err != nil {
		return nil, err
	}

	var groups []uint
	restricted := false
	if assignment.UsesSeparateGroups() && !viewer.SeesAllGroups() {
		viewerGroups, err := s.enrollments.ListUserGroupIDs(ctx, assignment.CourseID, viewer.UserID)
		if err != nil {
			return nil, err
		}
		groups = viewerGroups
		restricted = true
	}

	if groupID != 0 {
		if restricted && !containsUint(groups, groupID) {
			return []uint{}, nil
		}
		groups = []uint{groupID}
		restricted = true
	}

	if !restricted {
		return students, nil
	}
	if len(groups) == 0 {
		return []uint{}, nil
	}

	members, err := s.enrollments.ListGroupMemberIDs(ctx, groups)
	if err != nil {
		return nil, err
	}
	allowed := make(map[uint]struct{}, len(members))
	for _, id := range members {
		allowed[id] = struct{}{}
	}

	filtered := make([]uint, 0, len(students))
	for _, id := range students {
		if _, ok := allowed[id]; ok {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

func (s *listingService) buildRows(ctx context.Context, assignmentID uint, filter int, students []uint) ([]listingRow, error) {
	repoFilter := repository.SubmissionFilter{AssignmentID: assignmentID, Filter: filter, UserIDs: students}
	if filter == models.FilterNotSubmittedYet {
		repoFilter.Filter = models.FilterAll
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	switch filter {
	case models.FilterRequiresGrading, models.FilterSubmitted:
		rows := make([]listingRow, 0, len(submissions))
		for i := range submissions {
			rows = append(rows, listingRow{userID: submissions[i].UserID, submission: &submissions[i]})
		}
		return rows, nil
	}

	byUser := make(map[uint]*models.Submission, len(submissions))
	for i := range submissions {
		byUser[submissions[i].UserID] = &submissions[i]
	}

	rows := make([]listingRow, 0, len(students))
	for _, userID := range students {
		submission, ok := byUser[userID]
		if filter == models.FilterNotSubmittedYet {
			if !ok {
				rows = append(rows, listingRow{userID: userID})
			}
			continue
		}
		rows = append(rows, listingRow{userID: userID, submission: submission})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].updatedAt() != rows[j].updatedAt() {
			return rows[i].updatedAt() > rows[j].updatedAt()
		}
		return rows[i].userID < rows[j].userID
	})

	return rows, nil
}

func (s *listingService) Summary(ctx context.Context, assignmentID uint, viewer Viewer, now time.Time) (dto.GradingSummaryResponse, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return dto.GradingSummaryResponse{}, err
	}
	if err := s.access.requireGrader(ctx, assignment.CourseID, viewer); err != nil {
		return dto.GradingSummaryResponse{}, err
	}

	counts, err := s.summaryCounts(ctx, assignment)
	if err != nil {
		return dto.GradingSummaryResponse{}, err
	}

	response := dto.GradingSummaryResponse{
		AssignmentID:    assignment.ID,
		Participants:    counts.Participants,
		Submitted:       counts.Submitted,
		RequiresGrading: counts.RequiresGrading,
		TimeAvailable:   assignment.TimeAvailable,
		TimeDue:         assignment.TimeDue,
		NotOpenYet:      assignment.HasAvailableDate() && now.Before(*assignment.TimeAvailable),
		Expired:         policy.IsExpired(assignment, now),
	}
	if assignment.HasDueDate() {
		response.RemainingTime = policy.RemainingTime(*assignment.TimeDue, now).String()
	}

	return response, nil
}

func (s *listingService) summaryCounts(ctx context.Context, assignment models.Assignment) (summaryCounts, error) {
	cacheKey := summaryCacheKey(assignment.ID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var counts summaryCounts
			if unmarshalErr := json.Unmarshal([]byte(cached), &counts); unmarshalErr == nil {
				s.logger.Debug().Uint("assignment_id", assignment.ID).Msg("summary cache hit")
				return counts, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read summary cache")
		}
	}

	students, err := s.enrolledStudents(ctx, assignment.CourseID)
	if err != nil {
		return summaryCounts{}, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: assignment.ID, UserIDs: students})
	if err != nil {
		return summaryCounts{}, err
	}

	counts := summaryCounts{Participants: len(students)}
	for _, submission := range submissions {
		if submission.CreatedAt > 0 {
			counts.Submitted++
		}
		if submission.RequiresGrading() {
			counts.RequiresGrading++
		}
	}

	if s.cache != nil {
		payload, err := json.Marshal(counts)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store summary cache")
			}
		}
	}

	return counts, nil
}

func (s *listingService) Invalidate(ctx context.Context, assignmentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, summaryCacheKey(assignmentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("failed to invalidate summary cache")
	}
}

// CourseOverview lists the assignments accepting submissions that need the
// viewer's attention: unmarked work for graders, missing work for students.
func (s *listingService) CourseOverview(ctx context.Context, courseID uint, viewer Viewer, now time.Time) ([]dto.CourseOverviewItem, error) {
	assignments, err := s.assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	open := make([]models.Assignment, 0, len(assignments))
	for _, assignment := range assignments {
		if policy.AcceptingSubmissions(assignment, now) {
			open = append(open, assignment)
		}
	}
	if len(open) == 0 {
		return []dto.CourseOverviewItem{}, nil
	}

	grader := viewer.IsAdmin()
	if !grader {
		grader, err = s.enrollments.HasRole(ctx, courseID, viewer.UserID, graderRoles)
		if err != nil {
			return nil, err
		}
	}

	if grader {
		return s.graderOverview(ctx, courseID, open)
	}
	return s.studentOverview(ctx, viewer.UserID, open)
}

func (s *listingService) graderOverview(ctx context.Context, courseID uint, assignments []models.Assignment) ([]dto.CourseOverviewItem, error) {
	students, err := s.enrolledStudents(ctx, courseID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CourseOverviewItem, 0, len(assignments))
	for _, assignment := range assignments {
		submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: assignment.ID, UserIDs: students})
		if err != nil {
			return nil, err
		}

		unmarked := 0
		for _, submission := range submissions {
			if submission.IsUnmarked() {
				unmarked++
			}
		}
		if unmarked == 0 {
			continue
		}

		item := newOverviewItem(assignment)
		item.Unmarked = unmarked
		items = append(items, item)
	}

	return items, nil
}

func (s *listingService) studentOverview(ctx context.Context, userID uint, assignments []models.Assignment) ([]dto.CourseOverviewItem, error) {
	ids := make([]uint, 0, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.ID)
	}

	submissions, err := s.submissions.ListByUser(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	submitted := make(map[uint]bool, len(submissions))
	for _, submission := range submissions {
		if submission.IsSubmitted() {
			submitted[submission.AssignmentID] = true
		}
	}

	items := make([]dto.CourseOverviewItem, 0, len(assignments))
	for _, assignment := range assignments {
		if submitted[assignment.ID] {
			continue
		}
		item := newOverviewItem(assignment)
		item.NotSubmitted = true
		items = append(items, item)
	}

	return items, nil
}

func newOverviewItem(assignment models.Assignment) dto.CourseOverviewItem {
	return dto.CourseOverviewItem{
		AssignmentID: assignment.ID,
		CourseID:     assignment.CourseID,
		Name:         assignment.Name,
		TimeDue:      assignment.TimeDue,
		PreventLate:  assignment.PreventLate,
	}
}

func containsUint(values []uint, target uint) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
