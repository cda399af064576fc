package models

import "time"

// User represents an account on the VidTube platform. Password holds the bcrypt
// hash and RefreshToken the single currently valid refresh token, if any.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Password     string
	Avatar       string
	CoverImage   string
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the sanitized view of a user returned to clients.
type PublicUser struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public strips secret fields from the user.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// UserPatch lists the user fields to change. Nil fields are left untouched.
type UserPatch struct {
	FullName   *string
	Email      *string
	Avatar     *string
	CoverImage *string
	Password   *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.FullName == nil && p.Email == nil && p.Avatar == nil && p.CoverImage == nil && p.Password == nil
}

// ChannelProfile aggregates a user's public data with subscription counts.
type ChannelProfile struct {
	ID                        string `json:"_id"`
	Username                  string `json:"username"`
	Email                     string `json:"email"`
	FullName                  string `json:"fullName"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

// Video is a published upload owned by a user.
type Video struct {
	ID          string    `json:"_id"`
	OwnerID     string    `json:"owner"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VideoPatch lists the video detail fields to change. Nil fields are left untouched.
type VideoPatch struct {
	Title       *string
	Description *string
	Thumbnail   *string
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
