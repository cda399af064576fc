package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/videos"
)

// VideoHandler implements the video endpoints.
type VideoHandler struct {
	Videos  VideoService
	Uploads UploadSettings
}

// Publish handles POST /api/v1/videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Uploads.parseForm(w, r); err != nil {
		respondError(ctx, w, err)
		return
	}
	staged := &stagedFiles{}
	defer staged.cleanup(ctx, r)

	videoPath, err := h.Uploads.stage(r, "videoFile", staged)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	thumbnailPath, err := h.Uploads.stage(r, "thumbnail", staged)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.Publish(ctx, videos.PublishInput{
		OwnerID:       userID,
		Title:         r.PostFormValue("title"),
		Description:   r.PostFormValue("description"),
		VideoPath:     videoPath,
		ThumbnailPath: thumbnailPath,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, video, "Video published successfully")
}

// Get handles GET /api/v1/videos/{videoId}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.Get(ctx, r.PathValue("videoId"), userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, video, "Video fetched successfully")
}

// ListByOwner handles GET /api/v1/videos/channel/{ownerId}.
func (h VideoHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	list, err := h.Videos.ListByOwner(ctx, r.PathValue("ownerId"), userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, list, "Videos fetched successfully")
}

// Update handles PATCH /api/v1/videos/{videoId}.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Uploads.parseForm(w, r); err != nil {
		respondError(ctx, w, err)
		return
	}
	staged := &stagedFiles{}
	defer staged.cleanup(ctx, r)

	thumbnailPath, err := h.Uploads.stage(r, "thumbnail", staged)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.UpdateDetails(ctx, r.PathValue("videoId"), userID, videos.DetailsInput{
		Title:         optionalFormValue(r, "title"),
		Description:   optionalFormValue(r, "description"),
		ThumbnailPath: thumbnailPath,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, video, "Video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Videos.Delete(ctx, r.PathValue("videoId"), userID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, nil, "Video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.TogglePublish(ctx, r.PathValue("videoId"), userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, video, "Publish status toggled")
}
