package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/repository"
)

const alertSeparator = "---------------------------------------------------------------------"

var graderRoles = []string{models.RoleTeacher, models.RoleEditingTeacher, models.RoleAdmin}

// TeacherAlerter tells graders that a student submitted new media.
type TeacherAlerter interface {
	AlertGraders(ctx context.Context, assignment models.Assignment, submission models.Submission) error
}

// GraderResolver finds the graders responsible for a student's submission.
type GraderResolver interface {
	Resolve(ctx context.Context, assignment models.Assignment, submitterID uint) ([]models.User, error)
}

type graderResolver struct {
	enrollments repository.EnrollmentRepository
}

// NewGraderResolver builds a resolver backed by course enrolments and groups.
func NewGraderResolver(enrollments repository.EnrollmentRepository) GraderResolver {
	return &graderResolver{enrollments: enrollments}
}

// Resolve returns enrolled graders, never the submitter. In separate groups
// mode graders must share a group with the submitter; a submitter without a
// group is routed to graders without a group.
func (r *graderResolver) Resolve(ctx context.Context, assignment models.Assignment, submitterID uint) ([]models.User, error) {
	graders, err := r.enrollments.ListUsers(ctx, assignment.CourseID, graderRoles)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.User, 0, len(graders))
	for _, grader := range graders {
		if grader.ID != submitterID {
			candidates = append(candidates, grader)
		}
	}

	if !assignment.UsesSeparateGroups() || len(candidates) == 0 {
		return candidates, nil
	}

	submitterGroups, err := r.enrollments.ListUserGroupIDs(ctx, assignment.CourseID, submitterID)
	if err != nil {
		return nil, err
	}

	candidateIDs := make([]uint, 0, len(candidates))
	for _, candidate := range candidates {
		candidateIDs = append(candidateIDs, candidate.ID)
	}
	graderGroups, err := r.enrollments.ListUsersGroupIDs(ctx, assignment.CourseID, candidateIDs)
	if err != nil {
		return nil, err
	}

	shared := make(map[uint]struct{}, len(submitterGroups))
	for _, id := range submitterGroups {
		shared[id] = struct{}{}
	}

	resolved := make([]models.User, 0, len(candidates))
	for _, candidate := range candidates {
		groups := graderGroups[candidate.ID]
		if len(submitterGroups) == 0 {
			if len(groups) == 0 {
				resolved = append(resolved, candidate)
			}
			continue
		}
		for _, id := range groups {
			if _, ok := shared[id]; ok {
				resolved = append(resolved, candidate)
				break
			}
		}
	}

	return resolved, nil
}

// TeacherAlert is the rendered content of a grader alert.
type TeacherAlert struct {
	Subject    string
	Text       string
	HTML       string
	ContextURL string
}

type alertInfo struct {
	CourseID          uint
	CourseShortName   string
	AssignmentID      uint
	AssignmentName    string
	SubmitterName     string
	SubmitterUsername string
	TimeUpdated       time.Time
	BaseURL           string
}

func (i alertInfo) gradingURL() string {
	return fmt.Sprintf("%s/assignments/%d/submissions", i.BaseURL, i.AssignmentID)
}

func (i alertInfo) courseURL() string {
	return fmt.Sprintf("%s/courses/%d", i.BaseURL, i.CourseID)
}

func (i alertInfo) assignmentURL() string {
	return fmt.Sprintf("%s/assignments/%d", i.BaseURL, i.AssignmentID)
}

func (i alertInfo) body() string {
	return fmt.Sprintf("%s has updated their video submission for '%s' at %s. It is available here: %s",
		i.SubmitterName, i.AssignmentName, i.TimeUpdated.UTC().Format(time.RFC1123), i.gradingURL())
}

// composeTeacherAlert renders the plain text alert and, when requested, the HTML variant.
func composeTeacherAlert(info alertInfo, withHTML bool) TeacherAlert {
	var text strings.Builder
	fmt.Fprintf(&text, "%s -> Video assignments  -> %s\n", info.CourseShortName, info.AssignmentName)
	text.WriteString(alertSeparator + "\n")
	text.WriteString(info.body() + "\n")
	text.WriteString("\n" + alertSeparator + "\n")

	alert := TeacherAlert{
		Subject:    fmt.Sprintf("Submitted: %s -> %s", info.SubmitterUsername, info.AssignmentName),
		Text:       text.String(),
		ContextURL: info.gradingURL(),
	}

	if withHTML {
		var markup strings.Builder
		fmt.Fprintf(&markup, `<p><a href="%s">%s</a> -> <a href="%s">%s</a></p>`,
			html.EscapeString(info.courseURL()), html.EscapeString(info.CourseShortName),
			html.EscapeString(info.assignmentURL()), html.EscapeString(info.AssignmentName))
		markup.WriteString("<hr />")
		fmt.Fprintf(&markup, "<p>%s</p>", html.EscapeString(info.body()))
		markup.WriteString("<hr />")
		alert.HTML = markup.String()
	}

	return alert
}

type teacherAlerter struct {
	resolver      GraderResolver
	enrollments   repository.EnrollmentRepository
	notifications NotificationService
	baseURL       string
	logger        zerolog.Logger
}

// NewTeacherAlerter builds the grader alert dispatcher.
func NewTeacherAlerter(resolver GraderResolver, enrollments repository.EnrollmentRepository, notifications NotificationService, baseURL string, logger zerolog.Logger) TeacherAlerter {
	return &teacherAlerter{
		resolver:      resolver,
		enrollments:   enrollments,
		notifications: notifications,
		baseURL:       strings.TrimRight(baseURL, "/"),
		logger:        logger.With().Str("component", "teacher_alerter").Logger(),
	}
}

func (a *teacherAlerter) AlertGraders(ctx context.Context, assignment models.Assignment, submission models.Submission) error {
	submitter, err := a.enrollments.GetUser(ctx, submission.UserID)
	if err != nil {
		return fmt.Errorf("load submitter: %w", err)
	}

	course, err := a.enrollments.GetCourse(ctx, assignment.CourseID)
	if err != nil {
		return fmt.Errorf("load course: %w", err)
	}

	graders, err := a.resolver.Resolve(ctx, assignment, submission.UserID)
	if err != nil {
		return fmt.Errorf("resolve graders: %w", err)
	}

	info := alertInfo{
		CourseID:          course.ID,
		CourseShortName:   course.ShortName,
		AssignmentID:      assignment.ID,
		AssignmentName:    assignment.Name,
		SubmitterName:     displayName(submitter),
		SubmitterUsername: submitter.Username,
		TimeUpdated:       time.Unix(submission.UpdatedAt, 0),
		BaseURL:           a.baseURL,
	}

	var errs []error
	for _, grader := range graders {
		alert := composeTeacherAlert(info, grader.MailHTML)
		_, err := a.notifications.Publish(ctx, dto.NotificationCreateRequest{
			UserID:     grader.ID,
			Type:       models.NotificationTeacherAlert,
			Subject:    alert.Subject,
			Message:    alert.Text,
			HTML:       alert.HTML,
			ContextURL: alert.ContextURL,
			Metadata: map[string]interface{}{
				"assignment_id": assignment.ID,
				"course_id":     assignment.CourseID,
				"submitter_id":  submission.UserID,
			},
		})
		if err != nil {
			a.logger.Error().Err(err).Uint("grader_id", grader.ID).Msg("failed to alert grader")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func displayName(user models.User) string {
	if strings.TrimSpace(user.FullName) != "" {
		return user.FullName
	}
	return user.Username
}
