package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gridwatch/capri/internal/application"
	appai "github.com/gridwatch/capri/internal/application/ai"
	"github.com/gridwatch/capri/internal/domain/analyst"
	"github.com/gridwatch/capri/internal/domain/threats"
)

// Service implements feed ingestion use-cases. Safe for concurrent use.
type Service struct {
	Fetcher  threats.Fetcher
	Repo     threats.Repository
	Analysis *appai.Service
	Archive  analyst.ReplyArchive
	Clock    application.Clock
	Log      *zap.SugaredLogger
}

type RefreshResult struct {
	Fetched    int                      `json:"fetched"`
	Saved      int                      `json:"saved"`
	AnalysisID string                   `json:"analysis_id,omitempty"`
	Results    []threats.AnalysisResult `json:"results,omitempty"`
}

// Refresh pulls the alert feed, persists new items for the tenant and
// optionally runs an AI analysis over the fetched batch.
func (s *Service) Refresh(ctx context.Context, tenant string, analyze bool) (RefreshResult, error) {
	items, err := s.Fetcher.Fetch(ctx)
	if err != nil {
		return RefreshResult{}, err
	}

	now := s.now()
	res := RefreshResult{Fetched: len(items)}
	for i := range items {
		items[i].TenantID = tenant
		items[i].FetchedAt = now
		if err := s.Repo.Save(ctx, &items[i]); err != nil {
			s.Log.Errorw("failed to save threat item", "id", items[i].ID, "error", err)
			continue
		}
		res.Saved++
	}

	s.snapshot(ctx, tenant, now, items)

	if analyze && s.Analysis != nil {
		a, results, err := s.Analysis.AnalyzeAndStore(ctx, tenant, items)
		if err != nil {
			return res, err
		}
		res.AnalysisID = string(a.ID)
		res.Results = results
	}
	return res, nil
}

// Latest returns the most recently ingested items for a tenant.
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*threats.Item, error) {
	return s.Repo.Latest(ctx, tenant, limit)
}

// Get returns a single ingested item for a tenant.
func (s *Service) Get(ctx context.Context, tenant string, id threats.ItemID) (*threats.Item, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// snapshot archives the fetched batch best-effort; a missing or failing
// archive never fails the refresh.
func (s *Service) snapshot(ctx context.Context, tenant string, now time.Time, items []threats.Item) {
	if s.Archive == nil {
		return
	}
	b, err := json.Marshal(items)
	if err != nil {
		return
	}
	key := fmt.Sprintf("%s/feeds/cisa-%d.json", tenant, now.Unix())
	if _, err := s.Archive.Put(ctx, key, b); err != nil {
		s.Log.Errorw("failed to archive feed snapshot", "key", key, "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}
