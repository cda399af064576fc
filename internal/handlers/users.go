package handlers

import (
	"context"
	"net/http"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/models"
)

// UserHandler implements registration, account and channel endpoints.
type UserHandler struct {
	Accounts AccountService
	Cookies  CookieSettings
	Uploads  UploadSettings
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Register handles POST /api/v1/users/register.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Uploads.parseForm(w, r); err != nil {
		respondError(ctx, w, err)
		return
	}
	staged := &stagedFiles{}
	defer staged.cleanup(ctx, r)

	avatarPath, err := h.Uploads.stage(r, "avatar", staged)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	coverPath, err := h.Uploads.stage(r, "coverImage", staged)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Accounts.Register(ctx, accounts.RegisterInput{
		FullName:       r.PostFormValue("fullName"),
		Username:       r.PostFormValue("username"),
		Email:          r.PostFormValue("email"),
		Password:       r.PostFormValue("password"),
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondSuccess(ctx, w, http.StatusCreated, user, "User registered successfully")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Accounts.CurrentUser(ctx, userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, user, "User fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Accounts.UpdateAccount(ctx, userID, req.FullName, req.Email)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, user, "Account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.Accounts.UpdateAvatar, "Avatar updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.Accounts.UpdateCoverImage, "Cover image updated successfully")
}

// DeleteAccount handles DELETE /api/v1/users/me.
func (h UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Accounts.DeleteAccount(ctx, userID); err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.clearSession(w)
	respondSuccess(ctx, w, http.StatusOK, nil, "Account deleted")
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewerID, err := currentUserID(r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	profile, err := h.Accounts.ChannelProfile(ctx, r.PathValue("username"), viewerID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, profile, "User channel fetched successfully")
}

type imageUpdater func(ctx context.Context, userID, localPath string) (models.PublicUser, error)

func (h UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, message string) {
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

	path, err := h.Uploads.stage(r, field, staged)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := update(ctx, userID, path)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, user, message)
}
