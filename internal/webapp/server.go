package webapp

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phillip-england/locsetup/internal/config"
	"github.com/phillip-england/locsetup/internal/csvimport"
	"github.com/phillip-england/locsetup/internal/logger"
	"github.com/phillip-england/locsetup/internal/middleware"
	"github.com/phillip-england/locsetup/internal/report"
	"github.com/phillip-england/locsetup/internal/security"
	"github.com/phillip-england/locsetup/internal/tasks"
)

const (
	uploadField  = "csv_file"
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

//go:embed templates/index.html assets/app.css
var templatesFS embed.FS

type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		Addr:           cfg.Addr,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
}

type pageData struct {
	Error          string
	Message        string
	CSRF           string
	FileName       string
	ImportedAt     string
	MissingHeaders []string
	Features       []featureView
	Tasks          []taskView
}

type featureView struct {
	Label   string
	Slug    string
	Enabled bool
}

type taskView struct {
	Name     string
	Subtasks []subtaskView
}

type subtaskView struct {
	Key     string
	Title   string
	Display []tasks.DisplayListItem
}

type server struct {
	store     *tasks.Store
	log       logger.Logger
	csrf      string
	maxUpload int64
	indexTmpl *template.Template
}

func newServer(cfg Config, store *tasks.Store, log logger.Logger) (*server, error) {
	token, err := security.NewToken()
	if err != nil {
		return nil, err
	}
	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &server{
		store:     store,
		log:       log,
		csrf:      token,
		maxUpload: cfg.MaxUploadBytes,
		indexTmpl: tmpl,
	}, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.indexPage))
	mux.Handle("/upload", http.HandlerFunc(s.upload))
	mux.Handle("/features/", http.HandlerFunc(s.toggleFeature))
	mux.Handle("/tasks.json", http.HandlerFunc(s.tasksJSON))
	mux.Handle("/tasks.xlsx", http.HandlerFunc(s.tasksWorkbook))
	mux.Handle("/assets/app.css", http.HandlerFunc(s.appCSSFile))
	mux.Handle("/healthz", http.HandlerFunc(healthz))

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self'",
		"img-src 'self' data: https:",
		"script-src 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
		middleware.RequestLogger(s.log),
		middleware.MaxBody(s.maxUpload),
		middleware.RequireCSRF(s.csrf),
	)
}

// Run serves the import page until ctx is cancelled. The task store lives for the
// lifetime of the process.
func Run(ctx context.Context, cfg Config, store *tasks.Store, log logger.Logger) error {
	s, err := newServer(cfg, store, log)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "url", "http://localhost"+cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) indexPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.store.Snapshot()
	data := pageData{
		Error:          r.URL.Query().Get("error"),
		Message:        r.URL.Query().Get("message"),
		CSRF:           s.csrf,
		FileName:       snap.FileName,
		MissingHeaders: snap.MissingHeaders,
		Features:       featureViews(snap.Features),
		Tasks:          taskViews(snap.Tasks),
	}
	if !snap.ImportedAt.IsZero() {
		data.ImportedAt = snap.ImportedAt.Format("Jan 2, 2006 3:04 PM")
	}
	if err := renderHTMLTemplate(w, s.indexTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logger.FromContext(r.Context()).Error("index template render failed", "error", err)
	}
}

func (s *server) upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	log := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		redirectError(w, r, "Invalid upload")
		return
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		redirectError(w, r, "A CSV file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		redirectError(w, r, "Unable to read upload")
		return
	}

	head := data[:min(len(data), csvimport.SniffLen)]
	if !csvimport.IsCSV(header.Filename, header.Header.Get("Content-Type"), head) {
		log.Debug("ignored non-csv upload", "file", header.Filename, "type", header.Header.Get("Content-Type"))
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	table, err := csvimport.ParseBytes(data)
	if err != nil {
		log.Error("csv parse failed", "file", header.Filename, "error", err)
		redirectError(w, r, "Unable to parse "+header.Filename)
		return
	}
	result, err := tasks.Build(r.Context(), table, s.store.Features())
	if err != nil {
		log.Error("task build failed", "file", header.Filename, "error", err)
		redirectError(w, r, "Unable to build tasks from "+header.Filename)
		return
	}

	snap := s.store.Replace(header.Filename, result)
	log.Info("imported csv", "file", header.Filename, "import", snap.ImportID, "tasks", len(snap.Tasks))
	http.Redirect(w, r, "/?message="+url.QueryEscape(fmt.Sprintf("Loaded %d locations from %s", len(snap.Tasks), header.Filename)), http.StatusFound)
}

// toggleFeature handles POST /features/{feature}/toggle.
func (s *server) toggleFeature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	trimmed := strings.TrimPrefix(r.URL.Path, "/features/")
	name, ok := strings.CutSuffix(trimmed, "/toggle")
	if !ok || name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}
	feature, err := tasks.ParseFeature(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	enabled := s.store.ToggleFeature(feature)
	logger.FromContext(r.Context()).Info("feature toggled", "feature", feature, "enabled", enabled)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"feature":  feature.Label(),
			"enabled":  enabled,
			"features": s.store.Features(),
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *server) tasksJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *server) tasksWorkbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, s.store.Snapshot()); err != nil {
		logger.FromContext(r.Context()).Error("workbook export failed", "error", err)
		http.Error(w, "unable to export tasks", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", xlsxMimeType)
	w.Header().Set("Content-Disposition", "attachment; filename=\"locsetup-tasks.xlsx\"")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) appCSSFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := templatesFS.ReadFile("assets/app.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func featureViews(set tasks.FeatureSet) []featureView {
	out := make([]featureView, len(tasks.Features))
	for i, f := range tasks.Features {
		out[i] = featureView{Label: f.Label(), Slug: f.Slug(), Enabled: set.Has(f)}
	}
	return out
}

func taskViews(list []tasks.Task) []taskView {
	out := make([]taskView, len(list))
	for i, t := range list {
		view := taskView{Name: t.Name()}
		for _, e := range t.Entries() {
			view.Subtasks = append(view.Subtasks, subtaskView{
				Key:     e.Key,
				Title:   e.Subtask.Title,
				Display: e.Subtask.Display,
			})
		}
		out[i] = view
	}
	return out
}

func redirectError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(msg), http.StatusFound)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func renderHTMLTemplate(w http.ResponseWriter, tmpl *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(buf.Bytes())
	return err
}
