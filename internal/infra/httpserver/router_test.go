package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appai "github.com/gridwatch/capri/internal/application/ai"
	appfeeds "github.com/gridwatch/capri/internal/application/feeds"
	domai "github.com/gridwatch/capri/internal/domain/ai"
	"github.com/gridwatch/capri/internal/domain/analyst"
	"github.com/gridwatch/capri/internal/domain/threats"
)

type fixedClient struct {
	reply string
	err   error
}

func (c *fixedClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

type fixedRepo struct {
	saved []*analyst.Analysis
}

func (r *fixedRepo) Save(ctx context.Context, a *analyst.Analysis) error {
	r.saved = append(r.saved, a)
	return nil
}

func (r *fixedRepo) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*analyst.Analysis, error) {
	return r.saved, nil
}

func (r *fixedRepo) Latest(ctx context.Context, tenant string) (*analyst.Analysis, error) {
	if len(r.saved) == 0 {
		return nil, nil
	}
	return r.saved[len(r.saved)-1], nil
}

type fixedThreatRepo struct {
	items map[threats.ItemID]*threats.Item
}

func (r *fixedThreatRepo) Save(ctx context.Context, it *threats.Item) error {
	if r.items == nil {
		r.items = map[threats.ItemID]*threats.Item{}
	}
	r.items[it.ID] = it
	return nil
}

func (r *fixedThreatRepo) Latest(ctx context.Context, tenant string, limit int) ([]*threats.Item, error) {
	out := make([]*threats.Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	return out, nil
}

func (r *fixedThreatRepo) Get(ctx context.Context, tenant string, id threats.ItemID) (*threats.Item, error) {
	it, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return it, nil
}

func newTestRouter(t *testing.T, client *fixedClient) (http.Handler, *fixedRepo, *fixedThreatRepo) {
	repo := &fixedRepo{}
	threatRepo := &fixedThreatRepo{}
	aiSvc := &appai.Service{
		Client: client,
		Model:  "test-model",
		Repo:   repo,
		Log:    zaptest.NewLogger(t).Sugar(),
	}
	feedsSvc := &appfeeds.Service{
		Repo: threatRepo,
		Log:  zaptest.NewLogger(t).Sugar(),
	}
	return NewRouter(aiSvc, feedsSvc, nil), repo, threatRepo
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t, &fixedClient{reply: "[]"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestAnalyzeEndpoint(t *testing.T) {
	router, repo, _ := newTestRouter(t, &fixedClient{reply: `[{"id":"x","severityScore":6,"threatType":"apt","urgency":"active","affectedVendors":[],"affectedSystems":[],"affectedProtocols":[],"rationale":"testing"}]`})

	body := `{"items":[{"id":"x","title":"Implant","description":"ICS implant","source":"CISA"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/acme/threats/analyze", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AnalysisID string `json:"analysis_id"`
		Model      string `json:"model"`
		Results    []struct {
			ID            string `json:"id"`
			SeverityScore int    `json:"severityScore"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AnalysisID)
	assert.Equal(t, "test-model", resp.Model)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "x", resp.Results[0].ID)
	assert.Equal(t, 6, resp.Results[0].SeverityScore)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "acme", repo.saved[0].TenantID)
}

func TestAnalyzeEndpoint_BatchTooLarge(t *testing.T) {
	router, _, _ := newTestRouter(t, &fixedClient{reply: "[]"})

	items := make([]map[string]string, 51)
	for i := range items {
		items[i] = map[string]string{"id": fmt.Sprintf("t-%d", i), "title": "x", "description": "y", "source": "z"}
	}
	body, _ := json.Marshal(map[string]any{"items": items})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/acme/threats/analyze", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeEndpoint_InvalidTenant(t *testing.T) {
	router, _, _ := newTestRouter(t, &fixedClient{reply: "[]"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/bad%20tenant/threats/analyze", bytes.NewBufferString(`{"items":[]}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t, &fixedClient{reply: "[]"})

	body := `{
		"alert_meta": {"posture": "Shields Up", "sector_match": true, "urgency": "medium"},
		"scores": {"P": 0.9, "X": 0.8, "S": 1, "U": 0.7, "K": 1, "C": 0.8, "A": 0.6}
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/acme/capri/evaluate", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var eval struct {
		CPCON struct {
			BaseLevel  int    `json:"base_level"`
			FinalLevel int    `json:"final_level"`
			Rationale  string `json:"rationale"`
		} `json:"cpcon"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eval))
	assert.Equal(t, "Shields Up posture targeting this sector", eval.CPCON.Rationale)
	assert.LessOrEqual(t, eval.CPCON.FinalLevel, eval.CPCON.BaseLevel)
}

func TestEvaluateEndpoint_AISeverityAdjustment(t *testing.T) {
	router, _, _ := newTestRouter(t, &fixedClient{reply: "[]"})

	body := `{
		"alert_meta": {},
		"scores": {"P": 0.5, "X": 0.5, "S": 0.5, "U": 0.5, "K": 0.5, "C": 0.5, "A": 0.5},
		"ai_severity": 9
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/acme/capri/evaluate", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var eval struct {
		AIImpact *float64 `json:"ai_impact"`
		CPCON    struct {
			BaseLevel int `json:"base_level"`
		} `json:"cpcon"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eval))
	require.NotNil(t, eval.AIImpact)
	assert.Equal(t, -0.4, *eval.AIImpact)
	assert.Equal(t, 5, eval.CPCON.BaseLevel)
}

func TestAnalyzeEndpoint_QuotaExceeded(t *testing.T) {
	router, _, _ := newTestRouter(t, &fixedClient{err: fmt.Errorf("%w: retry later", domai.ErrQuotaExceeded)})

	body := `{"items":[{"id":"x","title":"Implant","description":"ICS implant","source":"CISA"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/acme/threats/analyze", bytes.NewBufferString(body)))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestThreatGetEndpoint(t *testing.T) {
	router, _, threatRepo := newTestRouter(t, &fixedClient{reply: "[]"})
	require.NoError(t, threatRepo.Save(context.Background(), &threats.Item{
		ID:       "t-1",
		TenantID: "acme",
		Title:    "Substation malware",
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/acme/threats/t-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Substation malware")
}

func TestThreatGetEndpoint_NotFound(t *testing.T) {
	router, _, _ := newTestRouter(t, &fixedClient{reply: "[]"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/acme/threats/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestThreatsLatestEndpoint_InvalidTenant(t *testing.T) {
	router, _, _ := newTestRouter(t, &fixedClient{reply: "[]"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/bad%20tenant/threats/latest", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatestAnalysisEndpoint(t *testing.T) {
	router, repo, _ := newTestRouter(t, &fixedClient{reply: `[{"id":"x","severityScore":6,"threatType":"apt","urgency":"active","affectedVendors":[],"affectedSystems":[],"affectedProtocols":[],"rationale":"testing"}]`})

	body := `{"items":[{"id":"x","title":"Implant","description":"ICS implant","source":"CISA"}]}`
	seed := httptest.NewRecorder()
	router.ServeHTTP(seed, httptest.NewRequest(http.MethodPost, "/v1/acme/threats/analyze", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusOK, seed.Code)
	require.Len(t, repo.saved, 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/acme/analyses/latest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(repo.saved[0].ID))
}
