package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidtube/backend/internal/apperrors"
	"github.com/vidtube/backend/internal/logging"
)

const (
	defaultMaxUploadBytes = 512 << 20
	multipartMemoryBytes  = 8 << 20
)

// UploadSettings controls where multipart uploads are staged before they are
// handed to the media uploader.
type UploadSettings struct {
	Dir      string
	MaxBytes int64
}

// stagedFiles tracks files written to local disk for a single request.
type stagedFiles struct {
	paths []string
}

func (s *stagedFiles) add(path string) {
	if path != "" {
		s.paths = append(s.paths, path)
	}
}

// cleanup removes staged files the media uploader did not consume.
func (s *stagedFiles) cleanup(ctx context.Context, r *http.Request) {
	for _, path := range s.paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Warn("remove staged upload", "path", path, "error", err)
		}
	}
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// parseForm parses multipart bodies within the configured size limit and
// falls back to URL-encoded forms for other content types.
func (u UploadSettings) parseForm(w http.ResponseWriter, r *http.Request) error {
	limit := u.MaxBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(multipartMemoryBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &apperrors.Error{Kind: apperrors.KindPayloadTooLarge, Message: "Upload exceeds the maximum allowed size", Err: err}
		}
		return &apperrors.Error{Kind: apperrors.KindValidation, Message: "Invalid form data", Err: err}
	}
	return nil
}

// stage writes the uploaded file in field to the staging directory and
// returns its path, or an empty path when the field is absent.
func (u UploadSettings) stage(r *http.Request, field string, staged *stagedFiles) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", &apperrors.Error{Kind: apperrors.KindValidation, Message: fmt.Sprintf("Invalid %s upload", field), Err: err}
	}
	defer file.Close()

	path, err := u.write(file, header)
	if err != nil {
		return "", apperrors.Internal("Failed to store upload", err)
	}
	staged.add(path)
	return path, nil
}

func (u UploadSettings) write(file multipart.File, header *multipart.FileHeader) (string, error) {
	dir := u.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	out, err := os.CreateTemp(dir, "upload-*"+uploadExtension(header.Filename))
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("copy upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("close staged file: %w", err)
	}
	return out.Name(), nil
}

func uploadExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func optionalFormValue(r *http.Request, key string) *string {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return nil
	}
	value := values[0]
	return &value
}
