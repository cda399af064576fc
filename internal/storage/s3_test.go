package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vidtube/backend/internal/config"
)

type recordingUploader struct {
	input    *s3.PutObjectInput
	body     string
	location string
	err      error
}

func (u *recordingUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	u.input = input
	if input.Body != nil {
		data, err := io.ReadAll(input.Body)
		if err != nil {
			return nil, err
		}
		u.body = string(data)
	}
	if u.err != nil {
		return nil, u.err
	}
	return &manager.UploadOutput{Location: u.location}, nil
}

func TestS3StorageSaveUsesPublicBaseURL(t *testing.T) {
	uploader := &recordingUploader{location: "https://bucket.s3.amazonaws.com/avatars/a.png"}
	store := NewS3StorageWithUploader(uploader, "media", "https://cdn.example.com/")

	url, err := store.Save(context.Background(), "/avatars/a.png", "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if url != "https://cdn.example.com/avatars/a.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if aws.ToString(uploader.input.Bucket) != "media" || aws.ToString(uploader.input.Key) != "avatars/a.png" {
		t.Fatalf("unexpected input bucket=%q key=%q", aws.ToString(uploader.input.Bucket), aws.ToString(uploader.input.Key))
	}
	if aws.ToString(uploader.input.ContentType) != "image/png" {
		t.Fatalf("unexpected content type %q", aws.ToString(uploader.input.ContentType))
	}
	if uploader.body != "png" {
		t.Fatalf("unexpected body %q", uploader.body)
	}
}

func TestS3StorageSaveFallsBackToLocation(t *testing.T) {
	uploader := &recordingUploader{location: "https://bucket.s3.amazonaws.com/videos/v.mp4"}
	store := NewS3StorageWithUploader(uploader, "media", "")

	url, err := store.Save(context.Background(), "videos/v.mp4", "", strings.NewReader("mp4"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if url != uploader.location {
		t.Fatalf("unexpected url %q", url)
	}
	if uploader.input.ContentType != nil {
		t.Fatal("expected content type to be omitted")
	}
}

func TestS3StorageSaveErrors(t *testing.T) {
	uploader := &recordingUploader{err: errors.New("boom")}
	store := NewS3StorageWithUploader(uploader, "media", "")

	if _, err := store.Save(context.Background(), "", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := store.Save(context.Background(), "k", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestNewS3StorageRequiresBucket(t *testing.T) {
	if _, err := NewS3Storage(context.Background(), config.ObjectStoreConfig{}); err == nil {
		t.Fatal("expected error without bucket")
	}
}
