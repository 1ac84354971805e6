package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/observability"
	"github.com/noah-isme/vidassign-api/internal/repository"
)

const defaultPendingKey = "vidassign:gradebook:pending"

// GradebookSync mirrors assignment grades into the gradebook.
type GradebookSync interface {
	Push(ctx context.Context, assignment models.Assignment, snapshot models.GradeSnapshot) error
	UpdateItem(ctx context.Context, assignment models.Assignment) error
	Reset(ctx context.Context, assignment models.Assignment) error
	Delete(ctx context.Context, assignment models.Assignment) error
	Reconcile(ctx context.Context) (ReconcileReport, error)
}

// ReconcileReport summarises a retry pass over failed pushes.
type ReconcileReport struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Dropped   int `json:"dropped"`
}

type gradebookSync struct {
	store       repository.GradebookRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	pending     *redis.Client
	pendingKey  string
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradebookSync builds the gradebook synchroniser. pending may be nil, in
// which case failed pushes are only logged.
func NewGradebookSync(store repository.GradebookRepository, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, pending *redis.Client, logger zerolog.Logger) GradebookSync {
	return &gradebookSync{
		store:       store,
		assignments: assignments,
		submissions: submissions,
		pending:     pending,
		pendingKey:  defaultPendingKey,
		logger:      logger.With().Str("component", "gradebook_sync").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/vidassign-api/internal/service/gradebook"),
		now:         time.Now,
	}
}

func (s *gradebookSync) itemFor(assignment models.Assignment) models.GradeItem {
	item := models.GradeItem{
		CourseID:   assignment.CourseID,
		ModuleType: models.ModuleType,
		InstanceID: assignment.ID,
		ItemName:   assignment.Name,
		IDNumber:   assignment.IDNumber,
		GradeType:  assignment.GradeType(),
	}

	switch item.GradeType {
	case models.GradeTypeValue:
		item.GradeMax = float64(assignment.GradeMax)
		item.GradeMin = 0
	case models.GradeTypeScale:
		scaleID := assignment.ScaleID()
		item.ScaleID = &scaleID
	}

	return item
}

func (s *gradebookSync) UpdateItem(ctx context.Context, assignment models.Assignment) error {
	ctx, span := s.tracer.Start(ctx, "gradebook.update_item", trace.WithAttributes(
		attribute.Int64("gradebook.assignment_id", int64(assignment.ID)),
	))
	defer span.End()

	item := s.itemFor(assignment)
	if err := s.store.UpsertItem(ctx, &item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "item_upsert_failed")
		observability.GradebookSyncFailures().WithLabelValues("update_item").Inc()
		return err
	}

	return nil
}

func (s *gradebookSync) Push(ctx context.Context, assignment models.Assignment, snapshot models.GradeSnapshot) error {
	ctx, span := s.tracer.Start(ctx, "gradebook.push", trace.WithAttributes(
		attribute.Int64("gradebook.assignment_id", int64(assignment.ID)),
		attribute.Int64("gradebook.user_id", int64(snapshot.UserID)),
	))
	defer span.End()

	if err := s.push(ctx, assignment, snapshot); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "push_failed")
		observability.GradebookSyncFailures().WithLabelValues("push").Inc()
		s.markPending(ctx, assignment.ID, snapshot.UserID)
		return err
	}

	return nil
}

func (s *gradebookSync) push(ctx context.Context, assignment models.Assignment, snapshot models.GradeSnapshot) error {
	item := s.itemFor(assignment)
	if err := s.store.UpsertItem(ctx, &item); err != nil {
		return fmt.Errorf("upsert grade item: %w", err)
	}

	entry := models.GradeEntry{
		GradeItemID:    item.ID,
		UserID:         snapshot.UserID,
		RawGrade:       snapshot.RawGrade,
		Feedback:       snapshot.Feedback,
		FeedbackFormat: snapshot.FeedbackFormat,
		GraderID:       snapshot.GraderID,
		GradedAt:       snapshot.GradedAt,
		SubmittedAt:    snapshot.SubmittedAt,
	}
	if item.GradeType == models.GradeTypeText {
		entry.RawGrade = nil
	}

	if err := s.store.UpsertEntry(ctx, &entry); err != nil {
		return fmt.Errorf("upsert grade entry: %w", err)
	}

	return nil
}

func (s *gradebookSync) Reset(ctx context.Context, assignment models.Assignment) error {
	ctx, span := s.tracer.Start(ctx, "gradebook.reset", trace.WithAttributes(
		attribute.Int64("gradebook.assignment_id", int64(assignment.ID)),
	))
	defer span.End()

	if err := s.store.ResetItem(ctx, models.ModuleType, assignment.ID, s.now().UTC()); err != nil {
		span.RecordError(err)
		observability.GradebookSyncFailures().WithLabelValues("reset").Inc()
		return err
	}

	return nil
}

func (s *gradebookSync) Delete(ctx context.Context, assignment models.Assignment) error {
	ctx, span := s.tracer.Start(ctx, "gradebook.delete", trace.WithAttributes(
		attribute.Int64("gradebook.assignment_id", int64(assignment.ID)),
	))
	defer span.End()

	if err := s.store.DeleteItem(ctx, models.ModuleType, assignment.ID); err != nil {
		span.RecordError(err)
		observability.GradebookSyncFailures().WithLabelValues("delete").Inc()
		return err
	}

	s.dropPendingForAssignment(ctx, assignment.ID)
	return nil
}

// Reconcile retries every push recorded as failed.
func (s *gradebookSync) Reconcile(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{}
	if s.pending == nil {
		return report, nil
	}

	members, err := s.pending.SMembers(ctx, s.pendingKey).Result()
	if err != nil {
		return report, fmt.Errorf("read pending gradebook pushes: %w", err)
	}

	for _, member := range members {
		assignmentID, userID, ok := parsePendingMember(member)
		if !ok {
			s.clearPending(ctx, member)
			report.Dropped++
			continue
		}

		report.Attempted++
		assignment, err := s.assignments.GetByID(ctx, assignmentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.clearPending(ctx, member)
			report.Dropped++
			continue
		}
		if err != nil {
			report.Failed++
			continue
		}

		submission, err := s.submissions.Find(ctx, assignmentID, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.clearPending(ctx, member)
			report.Dropped++
			continue
		}
		if err != nil {
			report.Failed++
			continue
		}

		if err := s.push(ctx, assignment, models.SnapshotFromSubmission(submission)); err != nil {
			s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Uint("user_id", userID).Msg("gradebook retry failed")
			report.Failed++
			continue
		}

		s.clearPending(ctx, member)
		report.Synced++
	}

	s.logger.Info().
		Int("attempted", report.Attempted).
		Int("synced", report.Synced).
		Int("failed", report.Failed).
		Int("dropped", report.Dropped).
		Msg("gradebook reconciliation finished")

	return report, nil
}

func (s *gradebookSync) markPending(ctx context.Context, assignmentID, userID uint) {
	logger := s.logger.With().Uint("assignment_id", assignmentID).Uint("user_id", userID).Logger()
	if s.pending == nil {
		logger.Error().Msg("gradebook push failed and no pending store is configured")
		return
	}

	if err := s.pending.SAdd(ctx, s.pendingKey, pendingMember(assignmentID, userID)).Err(); err != nil {
		logger.Error().Err(err).Msg("failed to record pending gradebook push")
		return
	}
	logger.Warn().Msg("gradebook push queued for reconciliation")
}

func (s *gradebookSync) clearPending(ctx context.Context, member string) {
	if err := s.pending.SRem(ctx, s.pendingKey, member).Err(); err != nil {
		s.logger.Warn().Err(err).Str("member", member).Msg("failed to clear pending gradebook push")
	}
}

func (s *gradebookSync) dropPendingForAssignment(ctx context.Context, assignmentID uint) {
	if s.pending == nil {
		return
	}

	members, err := s.pending.SMembers(ctx, s.pendingKey).Result()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read pending gradebook pushes")
		return
	}

	prefix := strconv.FormatUint(uint64(assignmentID), 10) + ":"
	for _, member := range members {
		if strings.HasPrefix(member, prefix) {
			s.clearPending(ctx, member)
		}
	}
}

func pendingMember(assignmentID, userID uint) string {
	return fmt.Sprintf("%d:%d", assignmentID, userID)
}

func parsePendingMember(member string) (uint, uint, bool) {
	parts := strings.SplitN(member, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	assignmentID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	userID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return uint(assignmentID), uint(userID), true
}
