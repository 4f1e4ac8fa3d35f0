package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examreport/internal/ingest"
	"github.com/pavelanni/examreport/internal/model"
	"github.com/pavelanni/examreport/internal/report"
	"github.com/pavelanni/examreport/internal/service"
)

// Reporter is the service surface the handlers use.
type Reporter interface {
	Upload(ctx context.Context, userID string, files []ingest.File) (*service.UploadResult, error)
	Sessions(ctx context.Context, userID string) ([]model.SessionKey, error)
	Dataset(ctx context.Context, userID string) (model.TestDataset, error)
	ClassReport(ctx context.Context, userID, class, date string, withAI bool) (*report.ClassView, error)
	StudentReport(ctx context.Context, userID, class, date, student string, withAI bool) (*report.IndividualView, error)
}

// Config holds HTTP-level settings.
type Config struct {
	// MaxUploadBytes caps the multipart body of an upload.
	MaxUploadBytes int64
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc    Reporter
	config Config
}

// New creates a new Handler.
func New(svc Reporter, cfg Config) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	return &Handler{svc: svc, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(identifyUser)
		r.Post("/uploads", h.handleUpload)
		r.Get("/datasets", h.handleListSessions)
		r.Get("/reports/{class}/{date}", h.handleClassReport)
		r.Get("/reports/{class}/{date}/students/{student}", h.handleStudentReport)
		r.Get("/reports/{class}/{date}/export.xlsx", h.handleExport)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid or too large upload: "+err.Error())
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeErr(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeErr(w, http.StatusBadRequest, "failed to open "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeErr(w, http.StatusBadRequest, "failed to read "+fh.Filename)
			return
		}
		files = append(files, ingest.File{Name: fh.Filename, Content: data})
	}

	userID := model.UserIDFromContext(r.Context())
	res, err := h.svc.Upload(r.Context(), userID, files)
	if err != nil && res == nil {
		writeServiceErr(w, err)
		return
	}

	slog.Info("upload processed", "user", userID, "files", len(files), "sessions", len(res.Sessions), "failed", len(res.Failed))
	if err != nil {
		writeJSON(w, errorStatus(err), uploadResponse{UploadResult: res, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{UploadResult: res})
}

type uploadResponse struct {
	*service.UploadResult
	Error string `json:"error,omitempty"`
}

// handleListSessions lists the user's sessions; with full=1 it returns the
// whole stored document instead.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := model.UserIDFromContext(r.Context())
	if full, _ := strconv.ParseBool(r.URL.Query().Get("full")); full {
		ds, err := h.svc.Dataset(r.Context(), userID)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		if ds == nil {
			ds = model.TestDataset{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"dataset": ds})
		return
	}

	keys, err := h.svc.Sessions(r.Context(), userID)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	if keys == nil {
		keys = []model.SessionKey{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": keys})
}

// withAI reads the ai query parameter; enrichment is on unless ai=false.
func withAI(r *http.Request) bool {
	v := r.URL.Query().Get("ai")
	if v == "" {
		return true
	}
	on, err := strconv.ParseBool(v)
	return err != nil || on
}

// pathParam returns a decoded URL parameter. chi matches on RawPath when the
// request has one, and only then is the parameter still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

type viewResponse[T any] struct {
	View *T `json:"view"`
	// Warning is set when the view was served but saving it failed.
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) handleClassReport(w http.ResponseWriter, r *http.Request) {
	userID := model.UserIDFromContext(r.Context())
	v, err := h.svc.ClassReport(r.Context(), userID, pathParam(r, "class"), pathParam(r, "date"), withAI(r))
	writeView(w, v, err)
}

func (h *Handler) handleStudentReport(w http.ResponseWriter, r *http.Request) {
	userID := model.UserIDFromContext(r.Context())
	v, err := h.svc.StudentReport(r.Context(), userID, pathParam(r, "class"), pathParam(r, "date"), pathParam(r, "student"), withAI(r))
	writeView(w, v, err)
}

func writeView[T any](w http.ResponseWriter, v *T, err error) {
	if v == nil {
		writeServiceErr(w, err)
		return
	}
	resp := viewResponse[T]{View: v}
	if err != nil {
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	class, date := pathParam(r, "class"), pathParam(r, "date")
	v, err := h.svc.ClassReport(r.Context(), model.UserIDFromContext(r.Context()), class, date, false)
	if v == nil {
		writeServiceErr(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(r.Context(), &buf, v); err != nil {
		slog.Error("failed to build workbook", "class", class, "date", date, "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	filename := url.PathEscape(fmt.Sprintf("%s_%s.xlsx", class, date))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+filename)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("write workbook", "error", err)
	}
}
