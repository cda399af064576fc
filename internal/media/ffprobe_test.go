package media

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFFProbeDuration(t *testing.T) {
	probe := NewFFProbe("ffprobe", time.Second)
	probe.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		wantArgs := []string{"-v", "error", "-show_entries", "format=duration", "-of", "json", "/tmp/clip.mp4"}
		if binary != "ffprobe" {
			t.Fatalf("unexpected binary %q", binary)
		}
		if len(args) != len(wantArgs) {
			t.Fatalf("unexpected args length: got %d want %d", len(args), len(wantArgs))
		}
		for i, arg := range wantArgs {
			if args[i] != arg {
				t.Fatalf("unexpected arg at %d: got %q want %q", i, args[i], arg)
			}
		}
		return []byte(`{"format":{"duration":"12.480000"}}`), nil
	}

	duration, err := probe.Duration(context.Background(), "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	if duration != 12.48 {
		t.Fatalf("unexpected duration %v", duration)
	}
}

func TestFFProbeDurationFailures(t *testing.T) {
	cases := map[string]CommandRunner{
		"command error": func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("exit status 1")
		},
		"invalid json": func(context.Context, string, ...string) ([]byte, error) {
			return []byte(`not json`), nil
		},
		"missing duration": func(context.Context, string, ...string) ([]byte, error) {
			return []byte(`{"format":{}}`), nil
		},
		"non numeric duration": func(context.Context, string, ...string) ([]byte, error) {
			return []byte(`{"format":{"duration":"N/A"}}`), nil
		},
	}

	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			probe := NewFFProbe("", 0)
			probe.Run = run
			if _, err := probe.Duration(context.Background(), "clip.mp4"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewFFProbeDefaults(t *testing.T) {
	probe := NewFFProbe(" ", 0)
	if probe.Binary != "ffprobe" {
		t.Fatalf("unexpected binary %q", probe.Binary)
	}
	if probe.Timeout != 15*time.Second {
		t.Fatalf("unexpected timeout %s", probe.Timeout)
	}
}
