//go:build integration

package main

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
)

var baseURL = "http://localhost:8000"

// plainCodename must exist in the catalog of the server under test.
var plainCodename = "lemonades"

func init() {
	if u := os.Getenv("API_BASE_URL"); u != "" {
		baseURL = u
	}
	if c := os.Getenv("PLAIN_CODENAME"); c != "" {
		plainCodename = c
	}
}

func get(t *testing.T, path, userAgent string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

// TestPlainPrefix tests the always-plain route
func TestPlainPrefix(t *testing.T) {
	resp, body := get(t, "/plain/device/"+plainCodename+"/AviumUI/avium-16", "")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("expected text/plain content-type, got %s", ct)
	}
	if !strings.HasPrefix(body, "==================\n") {
		t.Errorf("expected banner, got %q", body)
	}
	if strings.Contains(body, "<") {
		t.Error("plain text should not contain markup")
	}
}

// TestClientIdentity tests that the rich route answers plain-text clients
func TestClientIdentity(t *testing.T) {
	_, plain := get(t, "/plain/device/"+plainCodename+"/AviumUI/avium-16", "")
	resp, body := get(t, "/device/"+plainCodename+"/AviumUI/avium-16/", "Dalvik/2.1.0 (Linux; U; Android 16; Build/BP2A.250605.031)")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body != plain {
		t.Error("client identity and plain prefix should render the same document")
	}
}

// TestBrowserGetsHTML tests the rich view for ordinary browsers
func TestBrowserGetsHTML(t *testing.T) {
	resp, _ := get(t, "/device/"+plainCodename+"/AviumUI/avium-16", "Mozilla/5.0")

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected text/html content-type, got %s", ct)
	}
}

// TestPlainNotFound tests the fixed 404 message
func TestPlainNotFound(t *testing.T) {
	resp, body := get(t, "/plain/device/doesnotexist/AviumUI/avium-16", "")

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if body != "未找到更新日志" {
		t.Errorf("unexpected body %q", body)
	}
}

// TestAPIDevices tests GET /api/devices returns JSON
func TestAPIDevices(t *testing.T) {
	resp, body := get(t, "/api/devices", "")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 200 or 429, got %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusOK {
		var devices []map[string]any
		if err := json.Unmarshal([]byte(body), &devices); err != nil {
			t.Errorf("invalid JSON: %v", err)
		}
	}
}

// TestHealth tests GET /health
func TestHealth(t *testing.T) {
	resp, _ := get(t, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
