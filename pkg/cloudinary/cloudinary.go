package cloudinary

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// DefaultAssessmentTag marks media that is attached to an assignment submission.
const DefaultAssessmentTag = "vidassign-submission"

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Tag       string
}

// Tagger labels submitted media assets inside Cloudinary.
type Tagger struct {
	client *cloudinary.Cloudinary
	tag    string
	logger zerolog.Logger
}

// New constructs a Cloudinary media tagger.
func New(cfg Config, logger zerolog.Logger) (*Tagger, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	tag := strings.TrimSpace(cfg.Tag)
	if tag == "" {
		tag = DefaultAssessmentTag
	}

	return &Tagger{
		client: cld,
		tag:    tag,
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// AddAssessmentTag marks the media as used by a submission.
func (t *Tagger) AddAssessmentTag(ctx context.Context, mediaReferenceID string) error {
	publicID := strings.TrimSpace(mediaReferenceID)
	if publicID == "" {
		return fmt.Errorf("media reference is required")
	}

	result, err := t.client.Upload.AddTag(ctx, uploader.AddTagParams{
		Tag:       t.tag,
		PublicIDs: []string{publicID},
	})
	if err != nil {
		return fmt.Errorf("failed to tag media: %w", err)
	}
	if result != nil && result.Error.Message != "" {
		return fmt.Errorf("failed to tag media: %s", result.Error.Message)
	}

	t.logger.Info().Str("public_id", publicID).Str("tag", t.tag).Msg("media tagged as submission")
	return nil
}

// RemoveAssessmentTag clears the submission marker once no submission references the media.
func (t *Tagger) RemoveAssessmentTag(ctx context.Context, mediaReferenceID string) error {
	publicID := strings.TrimSpace(mediaReferenceID)
	if publicID == "" {
		return nil
	}

	result, err := t.client.Upload.RemoveTag(ctx, uploader.RemoveTagParams{
		Tag:       t.tag,
		PublicIDs: []string{publicID},
	})
	if err != nil {
		return fmt.Errorf("failed to untag media: %w", err)
	}
	if result != nil && result.Error.Message != "" {
		return fmt.Errorf("failed to untag media: %s", result.Error.Message)
	}

	t.logger.Info().Str("public_id", publicID).Str("tag", t.tag).Msg("submission tag removed from media")
	return nil
}
