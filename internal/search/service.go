package search

import (
	"context"

	"github.com/rs/zerolog"

	"inkwell/api/internal/tree"
)

// Service is the facade that tries Meilisearch first and falls back to the
// configured secondary searcher (PostgreSQL FTS or the memory index).
type Service struct {
	meili    *Meili
	fallback Searcher
	logger   zerolog.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, fallback Searcher, logger zerolog.Logger) *Service {
	if fallback == nil {
		fallback = NewMemory()
	}
	return &Service{meili: meili, fallback: fallback, logger: logger.With().Str("component", "search").Logger()}
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn().Err(err).Msg("meilisearch error, falling back")
	}

	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Str("workspace", q.WorkspaceID).Msg("fallback search failed")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPage updates the local index synchronously and Meilisearch in the
// background.
func (s *Service) IndexPage(page tree.Page) {
	rec := RecordFromPage(page)
	if local, ok := s.fallback.(Indexer); ok {
		if err := local.IndexPages(context.Background(), []PageRecord{rec}); err != nil {
			s.logger.Error().Err(err).Str("page", page.ID).Msg("index page locally")
		}
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexPages(context.Background(), []PageRecord{rec}); err != nil {
			s.logger.Error().Err(err).Str("page", page.ID).Msg("index page")
		}
	}()
}

func (s *Service) DeletePage(pageID string) {
	if local, ok := s.fallback.(Indexer); ok {
		if err := local.DeletePages(context.Background(), []string{pageID}); err != nil {
			s.logger.Error().Err(err).Str("page", pageID).Msg("delete page locally")
		}
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeletePages(context.Background(), []string{pageID}); err != nil {
			s.logger.Error().Err(err).Str("page", pageID).Msg("delete page from index")
		}
	}()
}

// Reindex pushes a full page set into every index, e.g. after a workspace
// is loaded.
func (s *Service) Reindex(ctx context.Context, pages []tree.Page) {
	records := make([]PageRecord, 0, len(pages))
	for _, p := range pages {
		records = append(records, RecordFromPage(p))
	}
	if local, ok := s.fallback.(Indexer); ok {
		if err := local.IndexPages(ctx, records); err != nil {
			s.logger.Error().Err(err).Msg("reindex locally")
		}
	}
	if s.meili == nil || !s.meili.Healthy() || len(records) == 0 {
		return
	}
	if err := s.meili.IndexPages(ctx, records); err != nil {
		s.logger.Error().Err(err).Msg("reindex pages")
	}
}

// ReindexFromPG reloads every page from PostgreSQL into Meilisearch.
func (s *Service) ReindexFromPG(ctx context.Context, pg *PgFTS) {
	if s.meili == nil || !s.meili.Healthy() || pg == nil {
		return
	}
	records, err := pg.LoadRecords(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("reindex load failed")
		return
	}
	if err := s.meili.IndexPages(ctx, records); err != nil {
		s.logger.Error().Err(err).Msg("reindex pages")
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
