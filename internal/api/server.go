package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"adforge/internal/adcopy"
	"adforge/internal/campaign"
	"adforge/internal/gallery"
	"adforge/internal/platform"
	"adforge/internal/session"
)

const (
	SessionHeader = "X-Session-ID"
	maxBriefBytes = 1 << 20
)

type Studio interface {
	Generate(ctx context.Context, sessionID string, brief campaign.Brief) (campaign.Ad, error)
	Select(ctx context.Context, sessionID, id string) (campaign.Ad, error)
	Current(ctx context.Context, sessionID string) (campaign.Ad, error)
	History(ctx context.Context, sessionID string) ([]campaign.Ad, error)
	Find(ctx context.Context, sessionID, id string) (campaign.Ad, error)
	Clear(ctx context.Context, sessionID string) error
}

type Gallery interface {
	Save(ctx context.Context, item gallery.Item) (gallery.Stored, error)
	Recent(ctx context.Context, userID string, limit int) ([]gallery.Record, error)
}

type Options struct {
	Studio          Studio
	Gallery         Gallery
	Hub             *Hub
	Logger          *slog.Logger
	AllowedOrigins  []string
	GenerateTimeout time.Duration
	Static          fs.FS
	UploadDir       string
}

type Server struct {
	studio          Studio
	gallery         Gallery
	hub             *Hub
	logger          *slog.Logger
	allowedOrigins  []string
	generateTimeout time.Duration
	static          fs.FS
	uploadDir       string
}

type apiError struct {
	Error string `json:"error"`
}

type ctxKey struct{}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.GenerateTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		studio:          opts.Studio,
		gallery:         opts.Gallery,
		hub:             opts.Hub,
		logger:          logger,
		allowedOrigins:  origins,
		generateTimeout: timeout,
		static:          opts.Static,
		uploadDir:       opts.UploadDir,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(withSession)
	api.HandleFunc("/platforms", s.handlePlatforms).Methods(http.MethodGet)
	api.HandleFunc("/prompt", s.handlePrompt).Methods(http.MethodPost)
	api.HandleFunc("/tips", s.handleTips).Methods(http.MethodPost)
	api.HandleFunc("/ads", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/ads", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/ads", s.handleClear).Methods(http.MethodDelete)
	api.HandleFunc("/ads/current", s.handleCurrent).Methods(http.MethodGet)
	api.HandleFunc("/ads/{id}", s.handleFind).Methods(http.MethodGet)
	api.HandleFunc("/ads/{id}/select", s.handleSelect).Methods(http.MethodPost)
	api.HandleFunc("/ads/{id}/export", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/ads/{id}/save", s.handleSave).Methods(http.MethodPost)
	api.HandleFunc("/gallery", s.handleGallery).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	if s.uploadDir != "" {
		r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadDir))))
	}
	if s.static != nil {
		r.PathPrefix("/").Handler(http.FileServer(http.FS(s.static)))
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", SessionHeader, "Authorization"}),
		handlers.ExposedHeaders([]string{SessionHeader}),
	)
	return withLogging(cors(r), s.logger)
}

// withSession resolves the caller's session id from the header or the
// "session" query parameter, minting one when absent. The id is echoed
// back in the response header.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := strings.TrimSpace(r.Header.Get(SessionHeader))
		if sid == "" {
			sid = strings.TrimSpace(r.URL.Query().Get("session"))
		}
		if sid == "" {
			sid = uuid.NewString()
		}
		w.Header().Set(SessionHeader, sid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sid)))
	})
}

func sessionID(r *http.Request) string {
	sid, _ := r.Context().Value(ctxKey{}).(string)
	return sid
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.hub != nil {
		resp["subscribers"] = s.hub.Count()
	}
	writeJSON(w, http.StatusOK, resp)
}

type platformsResponse struct {
	Variant string                 `json:"variant"`
	Default string                 `json:"default"`
	Options []platform.NamedOption `json:"options"`
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	variant := platform.VariantBrand
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("variant")), platform.VariantPitch) {
		variant = platform.VariantPitch
	}
	reg := platform.ForVariant(variant)
	writeJSON(w, http.StatusOK, platformsResponse{
		Variant: variant,
		Default: reg.Default().Key,
		Options: reg.Options(),
	})
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	brief, ok := decodeBrief(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": adcopy.PromptTemplate(brief)})
}

func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	brief, ok := decodeBrief(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, adcopy.Tips(brief))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	brief, ok := decodeBrief(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.generateTimeout)
	defer cancel()

	ad, err := s.studio.Generate(ctx, sessionID(r), brief)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ad)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ads, err := s.studio.History(r.Context(), sessionID(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ads": ads})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.Clear(r.Context(), sessionID(r)); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	ad, err := s.studio.Current(r.Context(), sessionID(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	ad, err := s.studio.Find(r.Context(), sessionID(r), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	ad, err := s.studio.Select(r.Context(), sessionID(r), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ad, err := s.studio.Find(r.Context(), sessionID(r), id)
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("content-type", "text/plain; charset=utf-8")
	if parseBool(r.URL.Query().Get("download")) {
		w.Header().Set("content-disposition", `attachment; filename="ad-`+id+`.txt"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ad.ExportText())
}

type saveRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.gallery == nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "gallery is not configured"})
		return
	}

	var req saveRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBriefBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json body"})
			return
		}
	}

	sid := sessionID(r)
	ad, err := s.studio.Find(r.Context(), sid, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}

	stored, err := s.gallery.Save(r.Context(), gallery.FromAd(sid, req.Title, ad))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	if s.gallery == nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "gallery is not configured"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.gallery.Recent(r.Context(), sessionID(r), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	if recs == nil {
		recs = []gallery.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": recs})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "event stream is not configured"})
		return
	}
	s.hub.ServeWS(w, r, sessionID(r))
}

func decodeBrief(w http.ResponseWriter, r *http.Request) (campaign.Brief, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBriefBytes)

	var brief campaign.Brief
	if err := json.NewDecoder(r.Body).Decode(&brief); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid brief: " + err.Error()})
		return campaign.Brief{}, false
	}
	return brief, true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrBusy):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: err.Error()})
	case errors.Is(err, gallery.ErrNoImage):
		writeJSON(w, http.StatusUnprocessableEntity, apiError{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, apiError{Error: "generation timed out"})
	case errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "request cancelled"})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseBool(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
