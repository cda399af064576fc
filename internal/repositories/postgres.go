package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const userColumns = `id, username, email, full_name, password_hash, avatar, cover_image, COALESCE(refresh_token, ''), created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	if strings.TrimSpace(user.Password) == "" {
		return fmt.Errorf("insert user without password hash: %w", ErrInvalidRecord)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, password_hash, avatar, cover_image, created_at, updated_at)
        VALUES ($1, lower($2), lower($3), $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Password, user.Avatar, user.CoverImage, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "select user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByIdentity fetches the user whose username or email matches.
func (r *PostgresUserRepository) FindByIdentity(ctx context.Context, username, email string) (models.User, error) {
	return r.findOne(ctx, "select user by identity", `
        SELECT `+userColumns+`
        FROM users
        WHERE ($1 <> '' AND username = lower($1))
           OR ($2 <> '' AND email = lower($2))
        ORDER BY created_at
        LIMIT 1
    `, strings.TrimSpace(username), strings.TrimSpace(email))
}

// FindByUsername fetches a user by username, ignoring case.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, "select user by username", `SELECT `+userColumns+` FROM users WHERE username = lower($1)`, strings.TrimSpace(username))
}

func (r *PostgresUserRepository) findOne(ctx context.Context, op, query string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdateFields applies the non-nil fields of patch and returns the stored record.
func (r *PostgresUserRepository) UpdateFields(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if patch.Email != nil {
		lowered := strings.ToLower(strings.TrimSpace(*patch.Email))
		patch.Email = &lowered
	}

	user, err := scanUser(conn.QueryRow(ctx, `
        UPDATE users
        SET full_name = COALESCE($2, full_name),
            email = COALESCE($3, email),
            avatar = COALESCE($4, avatar),
            cover_image = COALESCE($5, cover_image),
            password_hash = COALESCE($6, password_hash),
            updated_at = $7
        WHERE id = $1
        RETURNING `+userColumns,
		id, patch.FullName, patch.Email, patch.Avatar, patch.CoverImage, patch.Password, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		if isPgError(err, pgUniqueViolation) {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// DeleteByID removes the user. Videos and subscriptions cascade.
func (r *PostgresUserRepository) DeleteByID(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete user", `DELETE FROM users WHERE id = $1`, id)
}

// SetRefreshToken overwrites the user's refresh token slot.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.execOne(ctx, "set refresh token", `
        UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1
    `, id, token, time.Now().UTC())
}

// SwapRefreshToken rotates the refresh token when the stored value still matches expected.
func (r *PostgresUserRepository) SwapRefreshToken(ctx context.Context, id, expected, next string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $3, updated_at = $4
        WHERE id = $1 AND refresh_token = $2
    `, id, expected, next, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrTokenMismatch
	}

	return nil
}

// ClearRefreshToken empties the user's refresh token slot.
func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.execOne(ctx, "clear refresh token", `
        UPDATE users SET refresh_token = NULL, updated_at = $2 WHERE id = $1
    `, id, time.Now().UTC())
}

func (r *PostgresUserRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Password,
		&user.Avatar, &user.CoverImage, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle flips the subscription between subscriber and channel inside one transaction.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin subscription toggle: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}

	subscribed := tag.RowsAffected() == 0
	if subscribed {
		_, err = tx.Exec(ctx, `
            INSERT INTO subscriptions (subscriber_id, channel_id, created_at)
            VALUES ($1, $2, $3)
        `, subscriberID, channelID, time.Now().UTC())
		if err != nil {
			if isPgError(err, pgForeignKeyViolation) {
				return false, ErrNotFound
			}
			if isPgError(err, pgUniqueViolation) {
				return false, ErrConflict
			}
			return false, fmt.Errorf("insert subscription: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit subscription toggle: %w", err)
	}

	return subscribed, nil
}

// IsSubscribed reports whether subscriberID follows channelID.
func (r *PostgresSubscriptionRepository) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
        )
    `, subscriberID, channelID).Scan(&exists); err != nil {
		return false, fmt.Errorf("select subscription: %w", err)
	}

	return exists, nil
}

// ChannelProfile aggregates subscriber and subscription counts for a username.
func (r *PostgresSubscriptionRepository) ChannelProfile(ctx context.Context, username string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var profile models.ChannelProfile
	err = conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.email, u.full_name, u.avatar, u.cover_image,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id)
        FROM users u
        WHERE u.username = lower($1)
    `, strings.TrimSpace(username)).Scan(&profile.ID, &profile.Username, &profile.Email, &profile.FullName,
		&profile.Avatar, &profile.CoverImage, &profile.SubscribersCount, &profile.ChannelsSubscribedToCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("aggregate channel profile: %w", err)
	}

	return profile, nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

const videoColumns = `id, owner_id, video_file, thumbnail, title, description, duration, views, is_published, created_at, updated_at`

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (`+videoColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.VideoFile, video.Thumbnail, video.Title, video.Description,
		video.Duration, video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrConflict
		}
		if isPgError(err, pgForeignKeyViolation) {
			return ErrNotFound
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID loads a video by identifier.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	return r.queryOne(ctx, "select video", `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
}

// ListByOwner returns the owner's videos, newest first.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string, includeUnpublished bool) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE owner_id = $1 AND (is_published OR $2)
        ORDER BY created_at DESC
        LIMIT 100
    `, ownerID, includeUnpublished)
	if err != nil {
		return nil, fmt.Errorf("query videos by owner: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

// Update applies the non-nil fields of patch and returns the stored record.
func (r *PostgresVideoRepository) Update(ctx context.Context, id string, patch models.VideoPatch) (models.Video, error) {
	return r.queryOne(ctx, "update video", `
        UPDATE videos
        SET title = COALESCE($2, title),
            description = COALESCE($3, description),
            thumbnail = COALESCE($4, thumbnail),
            updated_at = $5
        WHERE id = $1
        RETURNING `+videoColumns,
		id, patch.Title, patch.Description, patch.Thumbnail, time.Now().UTC())
}

// TogglePublished flips the publish flag atomically and returns the stored record.
func (r *PostgresVideoRepository) TogglePublished(ctx context.Context, id string) (models.Video, error) {
	return r.queryOne(ctx, "toggle video publish status", `
        UPDATE videos
        SET is_published = NOT is_published, updated_at = $2
        WHERE id = $1
        RETURNING `+videoColumns,
		id, time.Now().UTC())
}

// Delete removes a video by identifier.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresVideoRepository) queryOne(ctx context.Context, op, query string, args ...any) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("%s: %w", op, err)
	}
	return video, nil
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.VideoFile, &video.Thumbnail, &video.Title,
		&video.Description, &video.Duration, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt)
	return video, err
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
var _ VideoRepository = (*PostgresVideoRepository)(nil)
