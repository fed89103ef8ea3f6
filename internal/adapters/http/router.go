package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/grant-tagger/internal/config"
	"github.com/kirillkom/grant-tagger/internal/core/domain"
	"github.com/kirillkom/grant-tagger/internal/core/ports"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/export/xlsx"
)

// SpreadsheetWriter renders the grant catalogue for download.
type SpreadsheetWriter interface {
	Write(w io.Writer, grants []domain.Grant) error
}

type Router struct {
	cfg        config.Config
	tagger     ports.GrantTagger
	catalog    ports.GrantCatalog
	imports    ports.ImportQueue
	vocabulary *domain.Vocabulary
	exporter   SpreadsheetWriter
}

// NewRouter wires the grant API. imports and exporter may be nil; the matching
// endpoints then answer 503.
func NewRouter(
	cfg config.Config,
	tagger ports.GrantTagger,
	catalog ports.GrantCatalog,
	imports ports.ImportQueue,
	vocabulary *domain.Vocabulary,
	exporter SpreadsheetWriter,
) *Router {
	if vocabulary == nil {
		vocabulary = domain.DefaultVocabulary()
	}
	return &Router{
		cfg:        cfg,
		tagger:     tagger,
		catalog:    catalog,
		imports:    imports,
		vocabulary: vocabulary,
		exporter:   exporter,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /api/health", rt.health)
	mux.HandleFunc("GET /api/tags", rt.listTags)
	mux.HandleFunc("GET /api/openapi.yaml", rt.serveOpenAPI)

	mux.HandleFunc("GET /api/grants", rt.listGrants)
	mux.HandleFunc("POST /api/grants", rt.submitGrant)
	mux.HandleFunc("POST /api/grants/batch", rt.tagBatch)
	mux.HandleFunc("POST /api/grants/import", rt.enqueueImport)
	mux.HandleFunc("GET /api/grants/export.xlsx", rt.exportGrants)
	mux.HandleFunc("DELETE /api/grants/{id}", rt.deleteGrant)

	var handler http.Handler = mux
	handler = maxBodyMiddleware(handler, rt.cfg.APIMaxRequestBodyBytes)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait())
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = corsMiddleware(handler, rt.cfg.CORSAllowedOrigin)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	count, err := rt.pingAndCount(r)
	if err != nil {
		slog.Error("health_check_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	llmStatus := "configured"
	if strings.TrimSpace(rt.cfg.LLMAPIKey) == "" {
		llmStatus = "missing"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"database":     "connected",
		"groq_api":     llmStatus,
		"grants_count": count,
	})
}

func (rt *Router) pingAndCount(r *http.Request) (int, error) {
	if err := rt.catalog.Ping(r.Context()); err != nil {
		return 0, err
	}
	return rt.catalog.Count(r.Context())
}

func (rt *Router) listTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"tags": rt.vocabulary.Tags()})
}

func (rt *Router) listGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := rt.catalog.FindAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"grants": grants})
}

func (rt *Router) submitGrant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Grant *domain.Grant `json:"grant"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Grant == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request format, expected {\"grant\": {...}}"})
		return
	}

	grant, err := rt.tagger.Submit(r.Context(), *req.Grant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	all, err := rt.catalog.FindAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": fmt.Sprintf("Successfully added %s", grant.Name),
		"grant":   grant,
		"grants":  all,
	})
}

func (rt *Router) tagBatch(w http.ResponseWriter, r *http.Request) {
	grants, ok := rt.decodeBatch(w, r)
	if !ok {
		return
	}

	tagged, err := rt.tagger.TagMany(r.Context(), grants)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": fmt.Sprintf("Successfully added %d grants", len(tagged)),
		"grants":  tagged,
	})
}

func (rt *Router) enqueueImport(w http.ResponseWriter, r *http.Request) {
	if rt.imports == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "import queue is not configured"})
		return
	}
	grants, ok := rt.decodeBatch(w, r)
	if !ok {
		return
	}
	for idx, grant := range grants {
		if missing := grant.MissingFields(); len(missing) > 0 {
			writeError(w, r, &domain.MalformedGrantError{Index: idx, Missing: missing})
			return
		}
	}

	if err := rt.imports.PublishGrantImport(r.Context(), grants); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message": fmt.Sprintf("Queued %d grants for tagging", len(grants)),
		"queued":  len(grants),
	})
}

func (rt *Router) decodeBatch(w http.ResponseWriter, r *http.Request) ([]domain.Grant, bool) {
	var req struct {
		Grants []domain.Grant `json:"grants"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if req.Grants == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request format, expected {\"grants\": [...]}"})
		return nil, false
	}
	return req.Grants, true
}

func (rt *Router) deleteGrant(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "grant id is required"})
		return
	}

	found, err := rt.catalog.DeleteByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, domain.WrapError(domain.ErrGrantNotFound, "delete grant", fmt.Errorf("id=%s", id)))
		return
	}

	all, err := rt.catalog.FindAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Grant deleted successfully",
		"grants":  all,
	})
}

func (rt *Router) exportGrants(w http.ResponseWriter, r *http.Request) {
	if rt.exporter == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "export is not configured"})
		return
	}
	grants, err := rt.catalog.FindAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := rt.exporter.Write(&buf, grants); err != nil {
		writeError(w, r, fmt.Errorf("render spreadsheet: %w", err))
		return
	}
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="grants.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("body exceeds %d bytes", tooLarge.Limit))
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err))
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
