package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridwatch/capri/internal/application"
	domai "github.com/gridwatch/capri/internal/domain/ai"
	"github.com/gridwatch/capri/internal/domain/analyst"
	"github.com/gridwatch/capri/internal/domain/threats"
	"github.com/gridwatch/capri/internal/infra/ai/prompt"
)

// Service wraps prompt construction, the provider call and reply
// normalization in a single failure boundary. AnalyzeThreats never
// returns an error: every failure mode collapses to an empty result
// list plus a diagnostic, so callers may invoke it unconditionally in
// a pipeline. Only AnalyzeAndStore surfaces quota rejections.
type Service struct {
	Client  domai.Client // nil when no API key is configured
	Model   string
	Repo    analyst.Repository
	Archive analyst.ReplyArchive
	Clock   application.Clock
	Log     *zap.SugaredLogger
}

// AnalyzeThreats scores a batch of threat items with the AI provider.
// An empty batch short-circuits without any provider call. A missing
// credential logs a warning; transport and parse failures log errors.
// The returned slice is empty in all of those cases, never nil-panicky
// and never partial garbage.
func (s *Service) AnalyzeThreats(ctx context.Context, items []threats.Item) []threats.AnalysisResult {
	results, _, _ := s.analyze(ctx, items)
	return results
}

// analyze additionally returns the raw reply text for archiving and
// the underlying failure, which AnalyzeThreats discards.
func (s *Service) analyze(ctx context.Context, items []threats.Item) ([]threats.AnalysisResult, string, error) {
	if len(items) == 0 {
		return []threats.AnalysisResult{}, "", nil
	}
	if s.Client == nil {
		s.Log.Warnw("skipping AI threat analysis: no API key configured", "items", len(items))
		return []threats.AnalysisResult{}, "", nil
	}

	raw, err := s.Client.Complete(ctx, prompt.BuildThreatPrompt(items))
	if err != nil {
		s.Log.Errorw("AI threat analysis failed", "items", len(items), "error", err)
		return []threats.AnalysisResult{}, "", err
	}

	results, err := threats.ParseAnalysisReply(raw)
	if err != nil {
		s.Log.Errorw("AI threat analysis returned unparseable reply", "items", len(items), "error", err)
		return []threats.AnalysisResult{}, raw, err
	}
	return results, raw, nil
}

// AnalyzeAndStore runs an analysis and persists the normalized batch
// for auditing. A quota failure propagates so callers can answer 429;
// other failures still degrade to an empty stored batch. The raw reply
// is archived best-effort; archive errors are logged, not returned.
func (s *Service) AnalyzeAndStore(ctx context.Context, tenant string, items []threats.Item) (*analyst.Analysis, []threats.AnalysisResult, error) {
	results, raw, err := s.analyze(ctx, items)
	if errors.Is(err, domai.ErrQuotaExceeded) {
		return nil, nil, err
	}

	b, err := json.Marshal(results)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal analysis results: %w", err)
	}

	a := &analyst.Analysis{
		ID:        analyst.AnalysisID(uuid.New().String()),
		TenantID:  tenant,
		Model:     s.Model,
		BatchSize: len(items),
		Result:    string(b),
		CreatedAt: s.now(),
	}
	if s.Repo != nil {
		if err := s.Repo.Save(ctx, a); err != nil {
			return nil, nil, err
		}
	}

	if s.Archive != nil && raw != "" {
		key := fmt.Sprintf("%s/replies/%s.json", tenant, a.ID)
		if _, err := s.Archive.Put(ctx, key, []byte(raw)); err != nil {
			s.Log.Errorw("failed to archive raw AI reply", "key", key, "error", err)
		}
	}
	return a, results, nil
}

// ListAnalyses returns a page of stored analyses, newest first.
func (s *Service) ListAnalyses(ctx context.Context, tenant string, page, pageSize int) ([]*analyst.Analysis, error) {
	return s.Repo.Paginate(ctx, tenant, page, pageSize)
}

// LatestAnalysis returns the newest stored analysis for a tenant.
func (s *Service) LatestAnalysis(ctx context.Context, tenant string) (*analyst.Analysis, error) {
	return s.Repo.Latest(ctx, tenant)
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}
