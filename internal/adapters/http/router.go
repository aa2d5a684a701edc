package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
	"github.com/CodeSetter56/knowledge-search/internal/core/ports"
	"github.com/CodeSetter56/knowledge-search/internal/observability/metrics"
)

// maxUploadBytes bounds the multipart form kept in memory per request.
const maxUploadBytes = 32 << 20

type Router struct {
	uploader ports.FileUploader
	searcher ports.FileSearcher
	deleter  ports.FileDeleter
	stats    ports.StatsProvider
	pipeline *metrics.PipelineMetrics
	httpMet  *metrics.HTTPServerMetrics
}

func NewRouter(
	uploader ports.FileUploader,
	searcher ports.FileSearcher,
	deleter ports.FileDeleter,
	stats ports.StatsProvider,
	pipeline *metrics.PipelineMetrics,
	httpMet *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		uploader: uploader,
		searcher: searcher,
		deleter:  deleter,
		stats:    stats,
		pipeline: pipeline,
		httpMet:  httpMet,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/files", rt.uploadFile)
	mux.HandleFunc("/v1/files/search", rt.searchFiles)
	mux.HandleFunc("/v1/files/", rt.deleteFile)
	mux.HandleFunc("/v1/stats", rt.getStats)
	if rt.pipeline != nil {
		mux.Handle("/metrics", rt.pipeline.Handler())
	}

	var handler http.Handler = mux
	if rt.httpMet != nil {
		handler = rt.httpMet.Middleware("api", handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	result, err := rt.uploader.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeUploadError(w, err, result)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (rt *Router) searchFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := domain.SearchQuery{
		Keyword: strings.TrimSpace(r.URL.Query().Get("q")),
		Filter:  domain.ParseFilterKey(r.URL.Query().Get("type")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
			return
		}
		query.Limit = limit
	}

	var err error
	if query.From, err = parseDateParam(r.URL.Query().Get("from")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be formatted as YYYY-MM-DD"})
		return
	}
	if query.To, err = parseDateParam(r.URL.Query().Get("to")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must be formatted as YYYY-MM-DD"})
		return
	}

	files, err := rt.searcher.Search(r.Context(), query)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": files})
}

func (rt *Router) deleteFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/files/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file id is required"})
		return
	}

	stats, err := rt.deleter.Delete(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id, "stats": stats})
}

func (rt *Router) getStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	stats, err := rt.stats.Stats(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func parseDateParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// writeUploadError keeps the stats snapshot in failure payloads so
// clients can still refresh their counters display.
func writeUploadError(w http.ResponseWriter, err error, result *domain.UploadResult) {
	payload := map[string]any{"error": err.Error()}
	if result != nil && result.Stats != nil {
		payload["stats"] = result.Stats
	}
	writeJSON(w, mapErrorToHTTPStatus(err), payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
