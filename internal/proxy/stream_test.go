package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestStreamRelaysBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Upstream", "yes")
		w.Header().Set("Content-Type", "video/mp2t")
		_, _ = w.Write([]byte("stream-bytes"))
	}))
	t.Cleanup(upstream.Close)

	relay := NewRelay(true, testLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream/x", nil)

	if err := relay.Stream(rec, req, upstream.URL+"/live.ts"); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "stream-bytes" {
		t.Errorf("Expected relayed body, got %q", rec.Body.String())
	}
	if rec.Header().Get("X-Upstream") != "yes" {
		t.Error("Expected upstream header to be copied")
	}
	if rec.Header().Get("Content-Type") != "video/mp2t" {
		t.Errorf("Expected upstream content type, got %q", rec.Header().Get("Content-Type"))
	}
}

func TestStreamForwardsUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(upstream.Close)

	relay := NewRelay(true, testLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream/x", nil)

	if err := relay.Stream(rec, req, upstream.URL); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 to pass through, got %d", rec.Code)
	}
}

func TestStreamClientDisconnect(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("Upstream recorder does not support flushing")
			return
		}
		for {
			select {
			case <-r.Context().Done():
				return
			default:
				if _, err := w.Write([]byte("chunk")); err != nil {
					return
				}
				flusher.Flush()
				time.Sleep(10 * time.Millisecond)
			}
		}
	}))
	t.Cleanup(upstream.Close)

	relay := NewRelay(true, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream/x", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	errCh := make(chan error, 1)
	go func() {
		errCh <- relay.Stream(rec, req, upstream.URL)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not return after client disconnect")
	}
}

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		allowPrivate bool
		wantErr      error
	}{
		{
			name:    "public http URL",
			target:  "http://cdn.example.com/live.ts",
			wantErr: nil,
		},
		{
			name:    "public https URL",
			target:  "https://cdn.example.com/live.m3u8",
			wantErr: nil,
		},
		{
			name:    "ftp scheme",
			target:  "ftp://example.com/file",
			wantErr: ErrUnsupportedScheme,
		},
		{
			name:    "missing host",
			target:  "http://",
			wantErr: ErrMissingHost,
		},
		{
			name:    "localhost",
			target:  "http://localhost:8080/live.ts",
			wantErr: ErrInternalAddress,
		},
		{
			name:    "loopback IP",
			target:  "http://127.0.0.1/live.ts",
			wantErr: ErrInternalAddress,
		},
		{
			name:    "private class C",
			target:  "http://192.168.1.10/live.ts",
			wantErr: ErrInternalAddress,
		},
		{
			name:    "private class A",
			target:  "http://10.0.0.1/live.ts",
			wantErr: ErrInternalAddress,
		},
		{
			name:    "ipv6 loopback",
			target:  "http://[::1]:8080/live.ts",
			wantErr: ErrInternalAddress,
		},
		{
			name:         "private allowed when configured",
			target:       "http://192.168.1.10/live.ts",
			allowPrivate: true,
			wantErr:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := NewRelay(tt.allowPrivate, testLogger())
			err := relay.validateTarget(tt.target)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validateTarget(%q) unexpected error: %v", tt.target, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateTarget(%q) error = %v, want %v", tt.target, err, tt.wantErr)
			}
		})
	}
}

func TestStreamRejectsPrivateUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("should never be reached"))
	}))
	t.Cleanup(upstream.Close)

	relay := NewRelay(false, testLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream/x", nil)

	err := relay.Stream(rec, req, upstream.URL)
	if !errors.Is(err, ErrInternalAddress) {
		t.Errorf("Expected ErrInternalAddress for loopback upstream, got %v", err)
	}
}

func TestCopyHeadersSkipsHopHeaders(t *testing.T) {
	src := http.Header{
		"Connection":        []string{"keep-alive"},
		"Te":                []string{"trailers"},
		"Transfer-Encoding": []string{"chunked"},
		"X-Good":            []string{"kept"},
	}
	dst := http.Header{}

	copyHeaders(dst, src)

	if dst.Get("X-Good") != "kept" {
		t.Error("Expected regular header to be copied")
	}
	for _, h := range []string{"Connection", "Te", "Transfer-Encoding"} {
		if dst.Get(h) != "" {
			t.Errorf("Hop header %s should not be copied", h)
		}
	}
}

func TestContentTypeHint(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{
			name:   "hls playlist",
			target: "http://u/live/stream.m3u8",
			want:   "application/vnd.apple.mpegurl",
		},
		{
			name:   "transport stream",
			target: "http://u/live/stream.ts",
			want:   "video/mp2t",
		},
		{
			name:   "mp4",
			target: "http://u/vod/movie.mp4",
			want:   "video/mp4",
		},
		{
			name:   "extension with query string",
			target: "http://u/live/stream.m3u8?token=abc",
			want:   "application/vnd.apple.mpegurl",
		},
		{
			name:   "uppercase extension",
			target: "http://u/live/STREAM.M3U8",
			want:   "application/vnd.apple.mpegurl",
		},
		{
			name:   "unknown extension",
			target: "http://u/live/stream.mkv",
			want:   "",
		},
		{
			name:   "no extension",
			target: "http://u/live/12345",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentTypeHint(tt.target); got != tt.want {
				t.Errorf("contentTypeHint(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}
