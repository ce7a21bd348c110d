package srv

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/webframp/otalog/catalog"
	"github.com/webframp/otalog/plaintext"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type Server struct {
	Config     Config
	Catalog    *catalog.Store
	Classifier Classifier
	Renderer   plaintext.Renderer
	Metrics    *Metrics
	APILimiter *RateLimiter
	templates  map[string]*template.Template
	httpServer *http.Server
}

type pageData struct {
	Hostname string
	Title    string
	Devices  []catalog.Device
	Device   catalog.Device
	System   catalog.System
	Version  catalog.Version
	Releases []ReleaseView
	PlainURL string
	Path     string
}

// New creates a Server over an already-loaded catalog.
func New(cfg Config, store *catalog.Store) (*Server, error) {
	if store == nil {
		return nil, errors.New("catalog store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	srv := &Server{
		Config:     cfg,
		Catalog:    store,
		Classifier: NewClassifier(cfg),
		Renderer:   plaintext.Renderer{DateStyle: cfg.DateStyle},
		Metrics:    NewMetrics(),
		APILimiter: NewRateLimiter(cfg.APIRateLimit, cfg.APIRateInterval, cfg.APIRateBurst),
	}
	if err := srv.loadTemplates(); err != nil {
		return nil, err
	}
	return srv, nil
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Catalog.Len() == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "unhealthy: catalog is empty")
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/devices", http.StatusFound)
}

func (s *Server) HandleDevices(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "devices.html", pageData{
		Title:   "设备列表",
		Devices: s.Catalog.Devices(),
	})
}

func (s *Server) HandleDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.Catalog.Device(r.PathValue("codename"))
	if !ok {
		s.HandleNotFound(w, r)
		return
	}
	s.renderPage(w, r, http.StatusOK, "device.html", pageData{
		Title:  d.Name,
		Device: d,
	})
}

func (s *Server) HandleSystem(w http.ResponseWriter, r *http.Request) {
	codename := r.PathValue("codename")
	d, ok := s.Catalog.Device(codename)
	if !ok {
		s.HandleNotFound(w, r)
		return
	}
	sys, ok := s.Catalog.System(codename, r.PathValue("system"))
	if !ok {
		s.HandleNotFound(w, r)
		return
	}
	s.renderPage(w, r, http.StatusOK, "system.html", pageData{
		Title:  d.Name + " · " + sys.Name,
		Device: d,
		System: sys,
	})
}

func (s *Server) HandleChangelog(w http.ResponseWriter, r *http.Request) {
	codename := r.PathValue("codename")
	systemName := r.PathValue("system")
	versionID := r.PathValue("version")

	d, ok := s.Catalog.Device(codename)
	if !ok {
		s.HandleNotFound(w, r)
		return
	}
	sys, _ := s.Catalog.System(codename, systemName)
	v, ok := s.Catalog.Version(codename, systemName, versionID)
	if !ok {
		s.HandleNotFound(w, r)
		return
	}

	if WantsJSON(r) {
		s.Metrics.observeView("changelog_json", http.StatusOK)
		WriteJSON(w, r, http.StatusOK, ChangelogResponse{
			Codename: d.Codename,
			System:   sys.Name,
			Version:  v.Version,
			Label:    v.Label,
			Releases: plaintext.SortReleases(v.Releases),
		})
		return
	}

	data := pageData{
		Title:    d.Name + " · " + v.Label,
		Device:   d,
		System:   sys,
		Version:  v,
		Releases: releasesToViews(v.Releases),
	}
	target := s.Classifier.Target
	if sys.Name == target.System && v.Version == target.Version {
		data.PlainURL = s.PlainURL(d.Codename)
	}
	s.renderPage(w, r, http.StatusOK, "changelog.html", data)
}

// PlainURL returns the always-plain route for a device.
func (s *Server) PlainURL(codename string) string {
	t := s.Classifier.Target
	return s.Config.PlainPrefix + "/" + url.PathEscape(codename) + "/" + t.System + "/" + t.Version
}

func (s *Server) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusNotFound, "not_found.html", pageData{
		Title: "页面不存在",
		Path:  r.URL.Path,
	})
}

// HandleAPIDevices lists every device.
//
//	@Summary	List devices
//	@Tags		devices
//	@Produce	json
//	@Success	200	{array}	DeviceSummary
//	@Router		/api/devices [get]
func (s *Server) HandleAPIDevices(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, r, http.StatusOK, devicesToSummaries(s.Catalog.Devices()))
}

// HandleAPIDevice returns one device record with all systems and releases.
//
//	@Summary	Get a device
//	@Tags		devices
//	@Produce	json
//	@Param		codename	path		string	true	"Device codename"
//	@Success	200			{object}	catalog.Device
//	@Failure	404			{object}	map[string]string
//	@Router		/api/devices/{codename} [get]
func (s *Server) HandleAPIDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.Catalog.Device(r.PathValue("codename"))
	if !ok {
		WriteJSON(w, r, http.StatusNotFound, map[string]string{"message": "device not found"})
		return
	}
	WriteJSON(w, r, http.StatusOK, d)
}

var templateFuncs = template.FuncMap{
	"pathEscape": url.PathEscape,
	"releaseCount": func(v catalog.Version) int {
		return len(v.Releases)
	},
}

func (s *Server) loadTemplates() error {
	s.templates = make(map[string]*template.Template)
	templateFiles := []string{"devices.html", "device.html", "system.html", "changelog.html", "not_found.html"}
	for _, name := range templateFiles {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return fmt.Errorf("parse template %q: %w", name, err)
		}
		s.templates[name] = tmpl
	}
	slog.Debug("templates loaded", "count", len(s.templates))
	return nil
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data any) error {
	tmpl, ok := s.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("execute template %q: %w", name, err)
	}
	return nil
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	data.Hostname = s.Config.Hostname
	s.Metrics.observeView(name, status)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.renderTemplate(w, name, data); err != nil {
		slog.Warn("render template", "url", r.URL.Path, "error", err)
	}
}

// Handler returns the full middleware chain and routes. The plain-text
// responders run before routing so they can claim rich device paths.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.HandleRoot)
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.HandleFunc("GET /devices", s.HandleDevices)
	mux.HandleFunc("GET /device/{codename}", s.HandleDevice)
	mux.HandleFunc("GET /device/{codename}/{system}", s.HandleSystem)
	mux.HandleFunc("GET /device/{codename}/{system}/{version}", s.HandleChangelog)
	mux.Handle("GET /metrics", s.Metrics.Handler())
	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", StaticFileServer(static)))

	// API routes with rate limiting
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/{$}", s.HandleAPIDocs)
	apiMux.HandleFunc("GET /api/openapi.json", s.HandleAPISpec)
	apiMux.HandleFunc("GET /api/devices", s.HandleAPIDevices)
	apiMux.HandleFunc("GET /api/devices/{codename}", s.HandleAPIDevice)
	mux.Handle("/api/", s.APILimiter.Middleware(apiMux))

	var h http.Handler = mux
	h = s.PlainText(RuleClientIdentity, h)
	h = s.PlainText(RulePlainPrefix, h)
	return RequestLogger(Gzip(SecurityHeaders(LimitRequestBody(h))))
}

func (s *Server) Serve(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(s.Handler(), "otalog"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("starting server", "addr", addr, "devices", s.Catalog.Len())
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.APILimiter.Close()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
