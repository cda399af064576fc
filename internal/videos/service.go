package videos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperrors"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// MediaUploader moves locally received files into the object store.
type MediaUploader interface {
	UploadImage(ctx context.Context, localPath string) (media.Asset, error)
	UploadVideo(ctx context.Context, localPath string) (media.Asset, error)
}

// PublishInput describes a new upload. Paths point at files on local disk.
type PublishInput struct {
	OwnerID       string
	Title         string
	Description   string
	VideoPath     string
	ThumbnailPath string
}

// DetailsInput lists the details to change. Nil fields and an empty
// thumbnail path are left untouched.
type DetailsInput struct {
	Title         *string
	Description   *string
	ThumbnailPath string
}

// Service manages the lifecycle of uploaded videos.
type Service struct {
	videos repositories.VideoRepository
	media  MediaUploader

	now   func() time.Time
	newID func() string
}

// NewService constructs a Service.
func NewService(videos repositories.VideoRepository, uploader MediaUploader) *Service {
	if videos == nil || uploader == nil {
		panic("videos: service dependencies must not be nil")
	}
	return &Service{
		videos: videos,
		media:  uploader,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Publish uploads the video and thumbnail and stores a published video.
func (s *Service) Publish(ctx context.Context, in PublishInput) (models.Video, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return models.Video{}, apperrors.Validation("Title and description are required")
	}
	if strings.TrimSpace(in.VideoPath) == "" {
		return models.Video{}, apperrors.Validation("Video file is required")
	}
	if strings.TrimSpace(in.ThumbnailPath) == "" {
		return models.Video{}, apperrors.Validation("Thumbnail is required")
	}

	videoAsset, err := s.media.UploadVideo(ctx, in.VideoPath)
	if err != nil {
		return models.Video{}, apperrors.Internal("Failed to upload video", err)
	}
	thumbnail, err := s.media.UploadImage(ctx, in.ThumbnailPath)
	if err != nil {
		return models.Video{}, apperrors.Internal("Failed to upload thumbnail", err)
	}

	now := s.now()
	video := models.Video{
		ID:          s.newID(),
		OwnerID:     in.OwnerID,
		VideoFile:   videoAsset.URL,
		Thumbnail:   thumbnail.URL,
		Title:       title,
		Description: description,
		Duration:    videoAsset.Duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperrors.NotFound("User does not exist")
		}
		return models.Video{}, apperrors.Internal("Failed to publish video", err)
	}

	logging.FromContext(ctx).Info("video published", "videoId", video.ID, "ownerId", video.OwnerID)
	return video, nil
}

// Get returns a video. Unpublished videos are only visible to their owner.
func (s *Service) Get(ctx context.Context, videoID, viewerID string) (models.Video, error) {
	video, err := s.load(ctx, videoID)
	if err != nil {
		return models.Video{}, err
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return models.Video{}, apperrors.NotFound("Video not found")
	}
	return video, nil
}

// ListByOwner lists a channel's videos, newest first. The owner also sees
// unpublished videos.
func (s *Service) ListByOwner(ctx context.Context, ownerID, viewerID string) ([]models.Video, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return nil, apperrors.Validation("Invalid channel id")
	}
	videos, err := s.videos.ListByOwner(ctx, ownerID, ownerID == viewerID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list videos", err)
	}
	if videos == nil {
		videos = []models.Video{}
	}
	return videos, nil
}

// UpdateDetails changes the title, description or thumbnail of an owned video.
func (s *Service) UpdateDetails(ctx context.Context, videoID, ownerID string, in DetailsInput) (models.Video, error) {
	var patch models.VideoPatch
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return models.Video{}, apperrors.Validation("Title must not be empty")
		}
		patch.Title = &title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return models.Video{}, apperrors.Validation("Description must not be empty")
		}
		patch.Description = &description
	}
	if patch.Title == nil && patch.Description == nil && strings.TrimSpace(in.ThumbnailPath) == "" {
		return models.Video{}, apperrors.Validation("At least one field is required")
	}

	if _, err := s.owned(ctx, videoID, ownerID); err != nil {
		return models.Video{}, err
	}

	if strings.TrimSpace(in.ThumbnailPath) != "" {
		thumbnail, err := s.media.UploadImage(ctx, in.ThumbnailPath)
		if err != nil {
			return models.Video{}, apperrors.Internal("Failed to upload thumbnail", err)
		}
		patch.Thumbnail = &thumbnail.URL
	}

	updated, err := s.videos.Update(ctx, videoID, patch)
	if err != nil {
		return models.Video{}, videoLookupError(err)
	}
	return updated, nil
}

// Delete removes an owned video.
func (s *Service) Delete(ctx context.Context, videoID, ownerID string) error {
	if _, err := s.owned(ctx, videoID, ownerID); err != nil {
		return err
	}
	if err := s.videos.Delete(ctx, videoID); err != nil {
		return videoLookupError(err)
	}
	logging.FromContext(ctx).Info("video deleted", "videoId", videoID)
	return nil
}

// TogglePublish flips the publish status of an owned video.
func (s *Service) TogglePublish(ctx context.Context, videoID, ownerID string) (models.Video, error) {
	if _, err := s.owned(ctx, videoID, ownerID); err != nil {
		return models.Video{}, err
	}
	video, err := s.videos.TogglePublished(ctx, videoID)
	if err != nil {
		return models.Video{}, videoLookupError(err)
	}
	return video, nil
}

func (s *Service) load(ctx context.Context, videoID string) (models.Video, error) {
	if _, err := uuid.Parse(videoID); err != nil {
		return models.Video{}, apperrors.Validation("Invalid video id")
	}
	video, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		return models.Video{}, videoLookupError(err)
	}
	return video, nil
}

func (s *Service) owned(ctx context.Context, videoID, ownerID string) (models.Video, error) {
	video, err := s.load(ctx, videoID)
	if err != nil {
		return models.Video{}, err
	}
	if video.OwnerID != ownerID {
		return models.Video{}, apperrors.Forbidden("You are not allowed to modify this video")
	}
	return video, nil
}

func videoLookupError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NotFound("Video not found")
	}
	return apperrors.Internal("Failed to load video", err)
}
