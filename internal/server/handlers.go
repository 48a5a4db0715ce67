package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lumen/internal/credentials"
	"github.com/desertthunder/lumen/internal/fetcher"
	"github.com/desertthunder/lumen/internal/formatter"
	"github.com/desertthunder/lumen/internal/shared"
	"github.com/desertthunder/lumen/internal/tasks"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ClientIDRoute   = "/api/client-id"
	SoundCloudRoute = "/api/soundcloud/"
	GalleryRoute    = "/api/gallery"
	HealthRoute     = "/health"
	MetricsRoute    = "/metrics"
)

const noClientID = "No valid client ID available"

// Credentials is the part of *credentials.Session the proxy uses.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Status(ctx context.Context) credentials.Status
}

// Upstream fetches JSON from the media API. *fetcher.Fetcher satisfies it.
type Upstream interface {
	Fetch(ctx context.Context, rawURL string) (json.RawMessage, error)
}

// GalleryLoader runs one load cycle. *tasks.GalleryEngine satisfies it.
type GalleryLoader interface {
	Load(ctx context.Context, urls []string, r tasks.Renderer, progress chan<- tasks.ProgressUpdate) (*tasks.LoadResult, error)
}

// Deps wires the proxy handlers. Nil fields disable the matching route.
type Deps struct {
	Credentials Credentials
	Upstream    Upstream
	UpstreamURL string
	Gallery     GalleryLoader
	Source      func() ([]string, error)
	Logger      *log.Logger
}

// NewRouter registers every proxy route on a [BasicRouter] with request ID, logging, and recovery middleware.
func NewRouter(d Deps) *BasicRouter {
	if d.Logger == nil {
		d.Logger = shared.NewLogger(nil)
	}

	r := NewBasicRouter()
	r.Use(RequestID(), Logging(d.Logger), Recovery(d.Logger))

	if d.Credentials != nil {
		r.Handler(&ClientIDHandler{creds: d.Credentials, logger: d.Logger})
		r.HandleFunc(http.MethodGet, HealthRoute, healthHandler(d.Credentials))
	}
	if d.Upstream != nil {
		r.Handler(&SoundCloudHandler{upstream: d.Upstream, base: strings.TrimRight(d.UpstreamURL, "/"), logger: d.Logger})
	}
	if d.Gallery != nil && d.Source != nil {
		r.Handler(&GalleryHandler{gallery: d.Gallery, source: d.Source, logger: d.Logger})
	}
	r.Handle(http.MethodGet, MetricsRoute, promhttp.Handler())
	return r
}

// ClientIDHandler serves the current credential so browser clients can call the API directly.
type ClientIDHandler struct {
	creds  Credentials
	logger *log.Logger
}

func (h *ClientIDHandler) Routes() []string { return []string{ClientIDRoute} }

func (h *ClientIDHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, err := h.creds.Token(r.Context())
	if err != nil {
		h.logger.Error("client id unavailable", "error", err)
		writeError(w, http.StatusInternalServerError, noClientID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"clientId": token})
}

// SoundCloudHandler forwards GET /api/soundcloud/<path> upstream with the credential attached server-side.
type SoundCloudHandler struct {
	upstream Upstream
	base     string
	logger   *log.Logger
}

func (h *SoundCloudHandler) Routes() []string { return []string{SoundCloudRoute} }

func (h *SoundCloudHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, SoundCloudRoute)
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing api path")
		return
	}

	// the fetcher owns client_id; never forward a caller-supplied one
	q := r.URL.Query()
	q.Del("client_id")
	target := h.base + "/" + path
	if enc := q.Encode(); enc != "" {
		target += "?" + enc
	}

	h.logger.Debug("proxying request", "path", path)
	body, err := h.upstream.Fetch(r.Context(), target)
	if err != nil {
		status, resp := upstreamError(err)
		h.logger.Error("proxy error", "path", path, "status", status, "error", err)
		writeJSON(w, status, resp)
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// upstreamError maps a fetch failure to a status code and response body.
func upstreamError(err error) (int, errorResponse) {
	var se *fetcher.StatusError
	switch {
	case errors.As(err, &se):
		resp := errorResponse{Error: err.Error()}
		if json.Valid(se.Body) {
			resp.Details = se.Body
		}
		return se.StatusCode, resp
	case errors.Is(err, shared.ErrAuthExpired):
		return http.StatusUnauthorized, errorResponse{Error: err.Error()}
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: err.Error()}
	case errors.Is(err, shared.ErrMalformedResponse), errors.Is(err, shared.ErrNetworkFailure):
		return http.StatusBadGateway, errorResponse{Error: err.Error()}
	case errors.Is(err, shared.ErrIssuanceExhausted),
		errors.Is(err, shared.ErrIdentifierNotFound),
		errors.Is(err, shared.ErrAuthFailed):
		return http.StatusInternalServerError, errorResponse{Error: noClientID}
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: err.Error()}
	}
}

// GalleryHandler runs a load cycle over the configured source and returns every slot in order.
type GalleryHandler struct {
	gallery GalleryLoader
	source  func() ([]string, error)
	logger  *log.Logger
}

func (h *GalleryHandler) Routes() []string { return []string{GalleryRoute} }

func (h *GalleryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urls, err := h.source()
	if err != nil {
		h.logger.Error("failed to read playlist source", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read playlist source")
		return
	}

	res, err := h.gallery.Load(r.Context(), urls, nil, nil)
	switch {
	case errors.Is(err, shared.ErrGalleryUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Error loading playlists")
		return
	case errors.Is(err, shared.ErrLoadInFlight):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := make([]formatter.Entry, 0, len(res.Items))
	for _, it := range res.Items {
		if it.Dropped {
			continue
		}
		entries = append(entries, formatter.Entry{Index: it.Index, URL: it.URL, Playlist: it.Playlist, Err: it.Err})
	}

	data, err := formatter.ToJSON(entries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeRaw(w, http.StatusOK, data)
}

type healthResponse struct {
	Status     string             `json:"status"`
	Time       string             `json:"time"`
	Credential credentials.Status `json:"credential"`
}

func healthHandler(creds Credentials) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:     "ok",
			Time:       time.Now().UTC().Format(time.RFC3339),
			Credential: creds.Status(r.Context()),
		})
	}
}
