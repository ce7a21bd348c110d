package srv

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/webframp/otalog/catalog"
)

const bpUserAgent = "Mozilla/5.0 (Linux; Android 16; OnePlus 9R Build/BP2A.250605.031) AppleWebKit/537.36"

func testCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.New([]catalog.Device{
		{
			Codename: "lemonades",
			Name:     "OnePlus 9R",
			Systems: []catalog.System{{
				Name:        "AviumUI",
				Description: "Avium",
				Versions: []catalog.Version{
					{Version: "avium-16", Label: "Avium 16", Releases: []catalog.Release{
						{Date: "2024-01-02", Changes: []string{"Fixed&nbsp;bug<br>", "Added feature"}},
					}},
					{Version: "avium-15", Label: "Avium 15", Releases: []catalog.Release{
						{Date: "2023-06-01", Changes: []string{"Old"}},
					}},
				},
			}},
		},
		{
			Codename: "nabu",
			Name:     "Xiaomi Pad 5",
			Systems: []catalog.System{{
				Name: "AviumUI",
				Versions: []catalog.Version{
					{Version: "avium-16", Label: "Avium 16", Releases: []catalog.Release{
						{Date: "2024-01-02", Changes: []string{"<b>middle</b>"}},
						{Date: "2024-03-01", Changes: []string{"newest"}},
					}},
				},
			}},
		},
		{
			Codename: "empty",
			Name:     "No Releases",
			Systems: []catalog.System{{
				Name:     "AviumUI",
				Versions: []catalog.Version{{Version: "avium-16", Label: "Avium 16"}},
			}},
		},
	})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return store
}

// testServer creates a server over the fixture catalog.
func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Hostname = "test-hostname"
	server, err := New(cfg, testCatalog(t))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(server.APILimiter.Close)
	return server
}

func TestNew_RequiresCatalog(t *testing.T) {
	if _, err := New(DefaultConfig(), nil); err == nil {
		t.Error("expected error without catalog")
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PlainPrefix = "plain"
	if _, err := New(cfg, testCatalog(t)); err == nil {
		t.Error("expected config validation error")
	}
}

func TestServerSetupAndHandlers(t *testing.T) {
	server := testServer(t)
	handler := server.Handler()

	t.Run("root redirects to devices", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusFound {
			t.Errorf("expected status 302, got %d", w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/devices" {
			t.Errorf("Location = %q, want /devices", loc)
		}
	})

	t.Run("health", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "ok" {
			t.Errorf("health = %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("devices page lists every device", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/devices", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		body := w.Body.String()
		for _, want := range []string{"OnePlus 9R", "Xiaomi Pad 5", "/device/lemonades", "test-hostname"} {
			if !strings.Contains(body, want) {
				t.Errorf("devices page missing %q", want)
			}
		}
	})

	t.Run("device page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/device/lemonades", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "/device/lemonades/AviumUI") {
			t.Error("device page should link to its systems")
		}
	})

	t.Run("system page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/device/lemonades/AviumUI", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, "/device/lemonades/AviumUI/avium-16") || !strings.Contains(body, "Avium 15") {
			t.Error("system page should list versions")
		}
	})

	t.Run("unknown device renders 404 page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/device/doesnotexist", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
			t.Errorf("Content-Type = %q, want html", ct)
		}
	})

	t.Run("unknown system renders 404 page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/device/lemonades/LineageOS", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "otalog_view_responses_total") {
			t.Error("metrics should expose view counters")
		}
	})

	t.Run("metrics gzip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if got := w.Header().Values("Content-Encoding"); len(got) != 1 || got[0] != "gzip" {
			t.Fatalf("Content-Encoding = %v, want [gzip]", got)
		}
		gr, err := gzip.NewReader(w.Body)
		if err != nil {
			t.Fatalf("gzip.NewReader: %v", err)
		}
		body, err := io.ReadAll(gr)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !strings.Contains(string(body), "# TYPE otalog_view_responses_total counter") {
			t.Errorf("decompressed body is not exposition text: %q", body[:min(len(body), 32)])
		}
	})

	t.Run("static assets", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "immutable") {
			t.Errorf("Cache-Control = %q", cc)
		}
	})
}
