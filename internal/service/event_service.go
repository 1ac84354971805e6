package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/observability"
	"github.com/noah-isme/vidassign-api/internal/repository"
)

// EventEntry captures the details required to persist an assignment event.
type EventEntry struct {
	Action        string
	CourseID      uint
	AssignmentID  uint
	ActorID       uint
	RelatedUserID *uint
	Metadata      map[string]interface{}
}

// EventRecorder defines behaviour for recording assignment events.
type EventRecorder interface {
	Record(ctx context.Context, entry EventEntry) error
}

// EventService records assignment events and exposes the audit trail.
type EventService interface {
	EventRecorder
	List(ctx context.Context, req dto.EventListRequest) (dto.EventListResponse, error)
}

type eventService struct {
	repo         repository.EventRepository
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	subjectBase  string
	logger       zerolog.Logger
	now          func() time.Time
}

type publishedEvent struct {
	Action        string                 `json:"action"`
	CourseID      uint                   `json:"course_id"`
	AssignmentID  uint                   `json:"assignment_id"`
	ActorID       uint                   `json:"actor_id"`
	RelatedUserID *uint                  `json:"related_user_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// NewEventService constructs the event recorder. redisClient and natsConn may be nil.
func NewEventService(repo repository.EventRepository, redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) EventService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &eventService{
		repo:         repo,
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		subjectBase:  subject,
		logger:       logger.With().Str("component", "event_service").Logger(),
		now:          time.Now,
	}
}

func (s *eventService) Record(ctx context.Context, entry EventEntry) error {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	if action == "" {
		return fmt.Errorf("action is required")
	}

	model := models.AssignmentEvent{
		Action:        action,
		CourseID:      entry.CourseID,
		AssignmentID:  entry.AssignmentID,
		ActorID:       entry.ActorID,
		RelatedUserID: entry.RelatedUserID,
		Metadata:      sanitizeMetadata(entry.Metadata),
		CreatedAt:     s.now().UTC(),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to persist assignment event")
		return err
	}

	observability.EventsRecorded().WithLabelValues(action).Inc()

	if err := s.publish(ctx, model); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to publish assignment event")
		return err
	}

	return nil
}

func (s *eventService) publish(ctx context.Context, model models.AssignmentEvent) error {
	if s.nats == nil && s.redis == nil {
		return nil
	}

	payload, err := json.Marshal(publishedEvent{
		Action:        model.Action,
		CourseID:      model.CourseID,
		AssignmentID:  model.AssignmentID,
		ActorID:       model.ActorID,
		RelatedUserID: model.RelatedUserID,
		Metadata:      model.Metadata,
		OccurredAt:    model.CreatedAt,
	})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.subjectBase != "" {
		return s.nats.Publish(s.subjectBase+"."+model.Action, payload)
	}

	return nil
}

func (s *eventService) List(ctx context.Context, req dto.EventListRequest) (dto.EventListResponse, error) {
	filter := repository.EventFilter{
		Page:          req.Page,
		PageSize:      req.PageSize,
		AssignmentID:  req.AssignmentID,
		RelatedUserID: req.RelatedUserID,
		Action:        strings.TrimSpace(req.Action),
	}

	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.EventListResponse{}, err
	}

	items := make([]dto.EventResponse, 0, len(events))
	for _, event := range events {
		items = append(items, dto.NewEventResponse(event))
	}

	return dto.EventListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(maxInt(req.Page, 1), req.PageSize, total),
	}, nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
