package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/docprep/internal/config"
	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/core/ports"
)

const maxRequestBody = 1 << 20

// RunLookup reads recorded batch outcomes back.
type RunLookup interface {
	RunCounts(ctx context.Context, runID string) (map[domain.Outcome]int, error)
}

type Router struct {
	cfg       config.Config
	processor ports.DocumentProcessor
	batches   ports.BatchRunner
	manifests ports.ManifestService
	runs      RunLookup
	logger    *slog.Logger
}

// NewRouter wires the trigger API. runs may be nil when no ledger is configured.
func NewRouter(
	cfg config.Config,
	processor ports.DocumentProcessor,
	batches ports.BatchRunner,
	manifests ports.ManifestService,
	runs RunLookup,
) *Router {
	return &Router{
		cfg:       cfg,
		processor: processor,
		batches:   batches,
		manifests: manifests,
		runs:      runs,
		logger:    slog.Default(),
	}
}

// WithLogger replaces the access log destination.
func (rt *Router) WithLogger(logger *slog.Logger) *Router {
	if logger != nil {
		rt.logger = logger
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents/process", rt.processDocument)
	mux.HandleFunc("/v1/batches", rt.runBatch)
	mux.HandleFunc("/v1/batches/", rt.getBatch)
	mux.HandleFunc("/v1/manifests", rt.buildManifest)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIQueueWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Key   string `json:"key"`
		Force bool   `json:"force"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key is required"})
		return
	}

	res, err := rt.processor.Process(r.Context(), domain.NewDocument(req.Key), rt.processOptions(req.Force))
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]any{"error": err.Error(), "result": res})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (rt *Router) runBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Prefix string `json:"prefix"`
		Force  bool   `json:"force"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	docs, err := rt.batches.Discover(r.Context(), req.Prefix)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := rt.batches.Run(r.Context(), docs, rt.processOptions(req.Force))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) getBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	runID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/batches/"), "/")
	if runID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id is required"})
		return
	}
	if rt.runs == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "run ledger is not configured"})
		return
	}

	counts, err := rt.runs.RunCounts(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "counts": counts})
}

func (rt *Router) buildManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Folder string `json:"folder"`
		Agency string `json:"agency"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	folder := strings.TrimSpace(req.Folder)
	agency := strings.TrimSpace(req.Agency)
	if (folder == "") == (agency == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exactly one of folder or agency is required"})
		return
	}

	if folder != "" {
		summary, err := rt.manifests.BuildFolder(r.Context(), folder)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summaries, err := rt.manifests.PrepareAgency(r.Context(), agency)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]any{"error": err.Error(), "manifests": summaries})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"manifests": summaries})
}

func (rt *Router) processOptions(force bool) ports.ProcessOptions {
	return ports.ProcessOptions{Force: force || !rt.cfg.SkipConverted}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
