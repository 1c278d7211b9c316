package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bee-finder/pkg/apperr"
	"bee-finder/pkg/asset"
	"bee-finder/pkg/database"
	"bee-finder/pkg/finder"
	"bee-finder/pkg/location"
	"bee-finder/pkg/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxBodyBytes        = 30 << 20
)

// Finder is the part of finder.Service the HTTP API drives.
type Finder interface {
	Generate(ctx context.Context, q location.Query, sendStatus finder.StatusCallback) (*finder.Result, error)
	Video(ctx context.Context, req finder.VideoRequest, sendStatus finder.StatusCallback) (*finder.VideoResult, error)

	StartSession(ctx context.Context, q location.Query, sendStatus finder.StatusCallback) (*finder.SessionView, error)
	Session(id string) (*finder.SessionView, error)
	ChooseBee(ctx context.Context, id, beeName string, sendStatus finder.StatusCallback) (*finder.SessionView, error)
	AnimateSession(ctx context.Context, id string, duration int, sendStatus finder.StatusCallback) (*finder.SessionView, error)
	SessionImage(id string) (*asset.GeneratedAsset, string, error)
	ResetSession(id string) (*finder.SessionView, error)
}

type HistoryLister interface {
	ListGenerations(ctx context.Context, limit int) ([]database.GenerationRecord, error)
}

type Handler struct {
	Finder  Finder
	History HistoryLister
	// Media serves objects under /media/ when set. Only the memory backend needs it.
	Media  storage.Store
	logger *slog.Logger
}

func NewHandler(f Finder, history HistoryLister, media storage.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Finder: f, History: history, Media: media, logger: logger.With("component", "api")}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", h.HandleGenerate)
		r.Get("/generate/stream", h.HandleGenerateStream)
		r.Post("/video", h.HandleVideo)
		r.Get("/generations", h.HandleListGenerations)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.HandleStartSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.HandleGetSession)
				r.Delete("/", h.HandleResetSession)
				r.Post("/bee", h.HandleChooseBee)
				r.Post("/animate", h.HandleAnimate)
				r.Get("/download", h.HandleDownload)
			})
		})
	})

	if h.Media != nil {
		r.Get(storage.MediaPrefix+"*", h.HandleMedia)
	}
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- Single-request endpoints --

type locationRequest struct {
	Zipcode string `json:"zipcode"`
	City    string `json:"city"`
	State   string `json:"state"`
}

func (l locationRequest) query() (location.Query, error) {
	return location.ParseRequest(l.Zipcode, l.City, l.State)
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	q, err := req.query()
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.Finder.Generate(r.Context(), q, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleVideo(w http.ResponseWriter, r *http.Request) {
	var req finder.VideoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.Finder.Video(r.Context(), req, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleListGenerations(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, apperr.New(apperr.InvalidArgument, "The 'limit' must be a positive number."))
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	if h.History == nil {
		writeJSON(w, http.StatusOK, []database.GenerationRecord{})
		return
	}
	records, err := h.History.ListGenerations(r.Context(), limit)
	if err != nil {
		h.writeError(w, apperr.Wrap(apperr.Unavailable, "Could not load past bees.", err))
		return
	}
	if records == nil {
		records = []database.GenerationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	data, mimeType, err := h.Media.Get(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.writeError(w, apperr.Wrap(apperr.Unavailable, "Could not load media.", err))
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	_, _ = w.Write(data)
}

// -- Session endpoints --

func (h *Handler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	q, err := req.query()
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Finder.StartSession(r.Context(), q, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.Finder.Session(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleChooseBee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, apperr.New(apperr.InvalidArgument, "The request must include a bee 'name'."))
		return
	}
	view, err := h.Finder.ChooseBee(r.Context(), chi.URLParam(r, "id"), req.Name, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleAnimate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Duration int `json:"duration"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.writeError(w, err)
			return
		}
	}
	view, err := h.Finder.AnimateSession(r.Context(), chi.URLParam(r, "id"), req.Duration, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	img, name, err := h.Finder.SessionImage(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	_, _ = w.Write(img.Data)
}

func (h *Handler) HandleResetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.Finder.ResetSession(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// -- Helpers --

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "The request body must be valid JSON.", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
