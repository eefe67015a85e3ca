package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appai "github.com/gridwatch/capri/internal/application/ai"
	appfeeds "github.com/gridwatch/capri/internal/application/feeds"
	"github.com/gridwatch/capri/internal/domain/ai"
	"github.com/gridwatch/capri/internal/domain/capri"
	"github.com/gridwatch/capri/internal/domain/threats"
	"github.com/gridwatch/capri/internal/middleware"
)

type Router struct {
	aiSvc    *appai.Service
	feedsSvc *appfeeds.Service
}

func NewRouter(aiSvc *appai.Service, feedsSvc *appfeeds.Service, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{aiSvc: aiSvc, feedsSvc: feedsSvc}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Post("/threats/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/threats/latest", r.wrap(r.handleThreatsLatest))
		rt.Get("/threats/{id}", r.wrap(r.handleThreatGet))
		rt.Post("/feeds/cisa/refresh", r.wrap(r.handleFeedRefresh))
		rt.Get("/analyses", r.wrap(r.handleAnalysesList))
		rt.Get("/analyses/latest", r.wrap(r.handleLatestAnalysis))
		rt.Post("/capri/evaluate", r.wrap(r.handleEvaluate))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			if errors.Is(err, ai.ErrQuotaExceeded) {
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// POST /v1/{tenant}/threats/analyze
// Body: {"items": [{"id": "...", "title": "...", "description": "...", "source": "..."}]}
// Runs one AI analysis over the whole batch and stores the normalized result.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	var body struct {
		Items []threats.Item `json:"items"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if err := middleware.ValidateBatchSize(len(body.Items)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	for i := range body.Items {
		body.Items[i].Title = middleware.SanitizeString(body.Items[i].Title)
		body.Items[i].Description = middleware.SanitizeString(body.Items[i].Description)
	}

	middleware.IncrementAnalyses()
	a, results, err := r.aiSvc.AnalyzeAndStore(req.Context(), tenant, body.Items)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		middleware.IncrementAnalysesEmpty()
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"analysis_id": a.ID,
		"model":       a.Model,
		"results":     results,
	})
}

// GET /v1/{tenant}/threats/latest?limit=
func (r *Router) handleThreatsLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	items, err := r.feedsSvc.Latest(req.Context(), tenant, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(items)
}

// GET /v1/{tenant}/threats/{id}
func (r *Router) handleThreatGet(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	item, err := r.feedsSvc.Get(req.Context(), tenant, threats.ItemID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(item)
}

// POST /v1/{tenant}/feeds/cisa/refresh?analyze=true
func (r *Router) handleFeedRefresh(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	analyze := req.URL.Query().Get("analyze") == "true"

	middleware.IncrementFeedFetches()
	res, err := r.feedsSvc.Refresh(req.Context(), tenant, analyze)
	if err != nil {
		middleware.IncrementFeedFetchesFailed()
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(res)
}

// GET /v1/{tenant}/analyses?page=&page_size=
func (r *Router) handleAnalysesList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.aiSvc.ListAnalyses(req.Context(), tenant, page, size)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/analyses/latest
func (r *Router) handleLatestAnalysis(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	a, err := r.aiSvc.LatestAnalysis(req.Context(), tenant)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(a)
}

// POST /v1/{tenant}/capri/evaluate
// Body: {"alert_meta": {...}, "scores": {...}, "cvss_context": {...}, "ai_severity": 8}
// ai_severity is optional; when present the AI impact adjustment is
// folded into the readiness input.
func (r *Router) handleEvaluate(w http.ResponseWriter, req *http.Request) error {
	if err := middleware.ValidateTenantID(chi.URLParam(req, "tenant")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	var body struct {
		AlertMeta  capri.AlertMeta      `json:"alert_meta"`
		Scores     capri.CategoryScores `json:"scores"`
		CVSS       *capri.CVSSContext   `json:"cvss_context"`
		AISeverity *int                 `json:"ai_severity"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}

	var eval capri.Evaluation
	if body.AISeverity != nil {
		eval = capri.ProcessAlertWithAI(body.AlertMeta, body.Scores, body.CVSS, *body.AISeverity)
	} else {
		eval = capri.ProcessAlert(body.AlertMeta, body.Scores, body.CVSS)
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(eval)
}
