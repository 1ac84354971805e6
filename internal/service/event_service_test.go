package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vidassign-api/internal/dto"
	"github.com/noah-isme/vidassign-api/internal/models"
	"github.com/noah-isme/vidassign-api/internal/repository"
)

type memoryEventRepo struct {
	entries []models.AssignmentEvent
}

func (m *memoryEventRepo) Create(ctx context.Context, event *models.AssignmentEvent) error {
	event.ID = uint(len(m.entries) + 1)
	m.entries = append(m.entries, *event)
	return nil
}

func (m *memoryEventRepo) List(ctx context.Context, filter repository.EventFilter) ([]models.AssignmentEvent, int64, error) {
	return append([]models.AssignmentEvent(nil), m.entries...), int64(len(m.entries)), nil
}

func TestEventServiceRecordMasksSensitiveMetadata(t *testing.T) {
	repo := &memoryEventRepo{}
	svc := NewEventService(repo, nil, nil, "", zerolog.Nop())
	related := uint(5)

	err := svc.Record(context.Background(), EventEntry{
		Action:        " Media_Submitted ",
		CourseID:      2,
		AssignmentID:  3,
		ActorID:       5,
		RelatedUserID: &related,
		Metadata: map[string]interface{}{
			"email":              "student@example.com",
			"media_reference_id": "vid123",
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)
	require.Equal(t, models.EventMediaSubmitted, repo.entries[0].Action)
	require.Equal(t, "***", repo.entries[0].Metadata["email"])
	require.Equal(t, "vid123", repo.entries[0].Metadata["media_reference_id"])

	require.Error(t, svc.Record(context.Background(), EventEntry{Action: "  "}))
}

func TestEventServicePublishesToRedis(t *testing.T) {
	_, redisClient := setupRedis(t)
	repo := &memoryEventRepo{}
	svc := NewEventService(repo, redisClient, nil, "vidassign", zerolog.Nop())
	ctx := context.Background()

	sub := redisClient.Subscribe(ctx, "vidassign:events")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Record(ctx, EventEntry{Action: models.EventGradesUpdated, AssignmentID: 3, ActorID: 7}))

	select {
	case msg := <-sub.Channel():
		require.Contains(t, msg.Payload, `"action":"grades_updated"`)
	case <-time.After(2 * time.Second):
		t.Fatal("expected published event")
	}

	list, err := svc.List(ctx, dto.EventListRequest{AssignmentID: 3, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, 1, list.Pagination.Page)
}
