package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPProber_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPProber(5*time.Second, "")

	if !p.Probe(context.Background(), server.URL) {
		t.Error("expected probe to succeed for 200")
	}
}

func TestHTTPProber_UserAgent(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPProber(5*time.Second, "test-agent/1.0")
	p.Probe(context.Background(), server.URL)

	if gotAgent != "test-agent/1.0" {
		t.Errorf("expected custom user agent, got %q", gotAgent)
	}
}

func TestHTTPProber_DefaultUserAgent(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPProber(5*time.Second, "")
	p.Probe(context.Background(), server.URL)

	if gotAgent != DefaultUserAgent {
		t.Errorf("expected default browser user agent, got %q", gotAgent)
	}
}

func TestHTTPProber_FollowsRedirect(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer server.Close()

	p := NewHTTPProber(5*time.Second, "")

	if !p.Probe(context.Background(), server.URL) {
		t.Error("expected probe to follow redirect and succeed")
	}
}

func TestHTTPProber_BadStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"ok", http.StatusOK, true},
		{"not found", http.StatusNotFound, false},
		{"forbidden", http.StatusForbidden, false},
		{"server error", http.StatusInternalServerError, false},
		{"bad gateway", http.StatusBadGateway, false},
		{"no content", http.StatusNoContent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			p := NewHTTPProber(5*time.Second, "")
			if got := p.Probe(context.Background(), server.URL); got != tt.want {
				t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, got)
			}
		})
	}
}

func TestHTTPProber_EmptyURL(t *testing.T) {
	p := NewHTTPProber(5*time.Second, "")

	if p.Probe(context.Background(), "") {
		t.Error("expected empty URL to be false without a network call")
	}
}

func TestHTTPProber_ConnectionError(t *testing.T) {
	p := NewHTTPProber(1*time.Second, "")

	// Reserved TEST-NET address, nothing listens there.
	if p.Probe(context.Background(), "http://192.0.2.1:9/stream") {
		t.Error("expected probe to fail for unreachable host")
	}
}

func TestHTTPProber_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPProber(50*time.Millisecond, "")

	if p.Probe(context.Background(), server.URL) {
		t.Error("expected probe to time out")
	}
}

func TestHTTPProber_MalformedURL(t *testing.T) {
	p := NewHTTPProber(1*time.Second, "")

	if p.Probe(context.Background(), "://not-a-url") {
		t.Error("expected malformed URL to be false")
	}
}
