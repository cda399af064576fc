package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
)

// ObjectStore persists uploaded content and returns its public URL.
type ObjectStore interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// Asset describes an uploaded file.
type Asset struct {
	URL      string
	Duration float64
}

// Uploader moves files received by the API from local disk into the object
// store. The local file is removed whether or not the upload succeeds.
type Uploader struct {
	store  ObjectStore
	prober DurationProber
	newKey func() string
}

// NewUploader constructs an Uploader. prober may be nil, in which case
// durations are reported as zero.
func NewUploader(store ObjectStore, prober DurationProber) *Uploader {
	if store == nil {
		panic("media: object store must not be nil")
	}
	return &Uploader{store: store, prober: prober, newKey: uuid.NewString}
}

// UploadImage uploads an avatar, cover image or thumbnail.
func (u *Uploader) UploadImage(ctx context.Context, localPath string) (Asset, error) {
	return u.upload(ctx, "images", localPath, false)
}

// UploadVideo uploads a video file and reports its duration.
func (u *Uploader) UploadVideo(ctx context.Context, localPath string) (Asset, error) {
	return u.upload(ctx, "videos", localPath, true)
}

func (u *Uploader) upload(ctx context.Context, prefix, localPath string, probe bool) (Asset, error) {
	if strings.TrimSpace(localPath) == "" {
		return Asset{}, ErrNoFile
	}
	defer func() {
		if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Warn("remove local upload", "path", localPath, "error", err)
		}
	}()

	file, err := os.Open(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	contentType, err := detectContentType(file, localPath)
	if err != nil {
		return Asset{}, err
	}

	var asset Asset
	if probe && u.prober != nil {
		duration, err := u.prober.Duration(ctx, localPath)
		if err != nil {
			logging.FromContext(ctx).Warn("probe media duration", "path", localPath, "error", err)
		} else {
			asset.Duration = duration
		}
	}

	key := fmt.Sprintf("%s/%s%s", prefix, u.newKey(), strings.ToLower(filepath.Ext(localPath)))
	url, err := u.store.Save(ctx, key, contentType, file)
	if err != nil {
		return Asset{}, fmt.Errorf("store upload: %w", err)
	}
	asset.URL = url

	logging.FromContext(ctx).Info("media uploaded", "key", key, "contentType", contentType)
	return asset, nil
}

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

func detectContentType(file *os.File, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if contentType, ok := videoContentTypes[ext]; ok {
		return contentType, nil
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt, nil
	}

	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}
