package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/videofeed/internal/logging"
	"github.com/dmitrijs2005/videofeed/internal/server/metrics"
	"github.com/dmitrijs2005/videofeed/internal/server/services"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	videos  VideoService
	auth    AuthService
	db      Pinger
	metrics *metrics.Metrics
	limiter *rate.Limiter
	logger  logging.Logger
}

type uploadIntentRequest struct {
	Caption       string `json:"caption"`
	FileExtension string `json:"fileExtension"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// newHandler builds the router and wraps it, outermost first, with metrics,
// request logging, CORS and the method guard, so that those also apply to
// requests no route matches.
func newHandler(opts Options, logger logging.Logger, videos VideoService, auth AuthService, db Pinger, m *metrics.Metrics) http.Handler {
	h := &handlers{
		videos:  videos,
		auth:    auth,
		db:      db,
		metrics: m,
		limiter: newUploadLimiter(opts.UploadRateLimit, opts.UploadRateBurst),
		logger:  logger,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.notFound)

	r.HandleFunc("/api/videos", h.listVideos).Methods(http.MethodGet)
	r.HandleFunc("/api/videos/signed-url", requireAuth(auth, h.createUploadIntent)).Methods(http.MethodPost)
	r.HandleFunc("/api/videos/{id}", requireAuth(auth, h.updateVideo)).Methods(http.MethodPut)
	r.HandleFunc("/api/videos/{id}", requireAuth(auth, h.deleteVideo)).Methods(http.MethodDelete)
	if opts.TranscodeEnabled {
		r.HandleFunc("/api/videos/{id}/transcode", requireAuth(auth, h.startTranscode)).Methods(http.MethodPost)
	}
	if auth != nil && auth.Enabled() {
		r.HandleFunc("/api/auth/login", h.login).Methods(http.MethodPost)
	}

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	var handler http.Handler = r
	handler = methodGuard(handler)
	handler = corsMiddleware(opts.AllowedOrigin)(handler)
	handler = loggingMiddleware(logger)(handler)
	if m != nil {
		handler = m.Middleware(r)(handler)
	}
	return handler
}

func (h *handlers) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, msgEndpointNotFound)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, msg)
}

func (h *handlers) recordUpload(result string) {
	if h.metrics != nil {
		h.metrics.UploadIntent(result)
	}
}

func (h *handlers) listVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videos.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (h *handlers) createUploadIntent(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		h.recordUpload("limited")
		writeError(w, http.StatusTooManyRequests, msgTooManyRequests)
		return
	}

	// A malformed body is treated like one without a caption.
	var req uploadIntentRequest
	_ = json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)

	intent, err := h.videos.CreateUploadIntent(r.Context(), req.Caption, req.FileExtension)
	if err != nil {
		status, _ := errorStatus(err)
		if status == http.StatusBadRequest {
			h.recordUpload("invalid")
		} else {
			h.recordUpload("error")
		}
		h.fail(w, r, err)
		return
	}

	h.recordUpload("ok")
	writeJSON(w, http.StatusOK, intent)
}

// videoID parses the {id} path variable. Non-numeric ids can never match a
// row and are reported as a missing video.
func videoID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *handlers) updateVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := videoID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgVideoNotFound)
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&fields); err != nil {
		fields = nil
	}

	upd, err := services.ParseFieldMap(fields)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	n, err := h.videos.Update(r.Context(), id, upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Success: true, Message: msgVideoUpdated, RowsAffected: n})
}

func (h *handlers) deleteVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := videoID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgVideoNotFound)
		return
	}

	n, err := h.videos.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Success: true, Message: msgVideoDeleted, RowsAffected: n})
}

func (h *handlers) startTranscode(w http.ResponseWriter, r *http.Request) {
	id, ok := videoID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgVideoNotFound)
		return
	}

	v, err := h.videos.StartTranscode(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Password == "" {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn(r.Context(), "health check failed", "error", err)
		status := "database unavailable"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "database timeout"
		}
		writeError(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
