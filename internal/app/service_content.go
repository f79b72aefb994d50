package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"inkwell/api/internal/block"
	"inkwell/api/internal/engine"
	"inkwell/api/internal/export"
	"inkwell/api/internal/gitrepo"
	"inkwell/api/internal/importer"
	"inkwell/api/internal/media"
	"inkwell/api/internal/search"
	"inkwell/api/internal/tree"
)

// ExportPage renders a page. Rendering runs outside the workspace lock.
func (s *Service) ExportPage(ctx context.Context, workspaceID, pageID, rawFormat string) (*export.Result, error) {
	format, ok := export.ParseFormat(strings.ToLower(strings.TrimSpace(rawFormat)))
	if !ok {
		return nil, domainError(http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Unsupported export format", map[string]any{"format": rawFormat})
	}

	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	page, found := st.forest.Page(pageID)
	var breadcrumb []string
	if found {
		for _, ancestor := range st.forest.AncestorChain(pageID) {
			breadcrumb = append(breadcrumb, ancestor.Title)
		}
	}
	st.mu.Unlock()
	if !found {
		return nil, errNotFound("page")
	}

	result, err := s.exporter.Export(ctx, page, breadcrumb, format)
	switch {
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), map[string]any{"format": string(format)})
	case err != nil:
		return nil, fmt.Errorf("export page %s: %w", pageID, err)
	}
	return result, nil
}

// ImportMarkdown creates a page from a Markdown document under parentID, or
// at the root. Blocks past the page capacity are dropped.
func (s *Service) ImportMarkdown(ctx context.Context, workspaceID, parentID, name string, src []byte) (tree.Page, error) {
	doc, err := importer.Parse(src, strings.TrimSuffix(name, ".md"))
	if err != nil {
		return tree.Page{}, errValidation(fmt.Sprintf("invalid markdown: %v", err))
	}
	limit := s.limits.Max
	if limit <= 0 {
		limit = engine.DefaultMaxBlocks
	}
	if len(doc.Blocks) > limit {
		doc.Blocks = doc.Blocks[:limit]
	}

	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return tree.Page{}, err
	}
	defer st.mu.Unlock()
	if parentID != "" && !st.forest.Has(parentID) {
		return tree.Page{}, errNotFound("parent page")
	}
	now := s.now()
	page := tree.NewPage(workspaceID, parentID, tree.KindPage, now)
	page.Blocks = doc.Blocks
	page.Icon = doc.Icon
	page.CoverImage = doc.CoverImage
	next, id := st.forest.InsertPage(page, now)
	if id == "" {
		return tree.Page{}, errValidation("page could not be created")
	}
	s.applyLocked(ctx, st, next, true, nil)
	created, _ := st.forest.Page(id)
	return created, nil
}

// UploadMedia stores a file and points an Image or File block at it. The
// block keeps its caption.
func (s *Service) UploadMedia(ctx context.Context, workspaceID, pageID, blockID string, up media.Upload) (media.Object, error) {
	kind, caption, err := s.mediaTarget(ctx, workspaceID, pageID, blockID)
	if err != nil {
		return media.Object{}, err
	}

	up.WorkspaceID = workspaceID
	obj, err := s.media.Save(ctx, kind, up)
	switch {
	case errors.Is(err, media.ErrUnavailable):
		return media.Object{}, domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage is not configured", nil)
	case errors.Is(err, media.ErrTooLarge):
		return media.Object{}, domainError(http.StatusRequestEntityTooLarge, "MEDIA_TOO_LARGE", err.Error(), nil)
	case errors.Is(err, media.ErrEmpty), errors.Is(err, media.ErrNotAnImage):
		return media.Object{}, errValidation(err.Error())
	case err != nil:
		return media.Object{}, fmt.Errorf("upload media: %w", err)
	}

	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return media.Object{}, err
	}
	defer st.mu.Unlock()
	next := st.forest.UpdateBlocks(pageID, s.now(), func(blocks []block.Block) []block.Block {
		return engine.SetMedia(blocks, blockID, obj.URL, caption)
	})
	s.applyLocked(ctx, st, next, true, nil)
	return obj, nil
}

func (s *Service) mediaTarget(ctx context.Context, workspaceID, pageID, blockID string) (block.Kind, string, error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return "", "", err
	}
	defer st.mu.Unlock()
	page, ok := st.forest.Page(pageID)
	if !ok {
		return "", "", errNotFound("page")
	}
	i := engine.IndexOf(page.Blocks, blockID)
	if i < 0 {
		return "", "", errNotFound("block")
	}
	b := page.Blocks[i]
	if b.Kind != block.KindImage && b.Kind != block.KindFile {
		return "", "", errValidation("block does not hold media")
	}
	return b.Kind, b.Caption, nil
}

// Revisions lists the archived versions of a page, newest first.
func (s *Service) Revisions(ctx context.Context, workspaceID, pageID string, limit int) ([]gitrepo.Revision, error) {
	if _, err := s.GetPage(ctx, workspaceID, pageID); err != nil {
		return nil, err
	}
	if s.archive == nil {
		return []gitrepo.Revision{}, nil
	}
	revs, err := s.archive.History(workspaceID, pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("page history: %w", err)
	}
	if revs == nil {
		revs = []gitrepo.Revision{}
	}
	return revs, nil
}

// RestoreRevision brings back the blocks, icon and cover of an archived
// version as one undoable change.
func (s *Service) RestoreRevision(ctx context.Context, workspaceID, pageID, hash string) (tree.Page, error) {
	if s.archive == nil {
		return tree.Page{}, errNotFound("revision")
	}
	snap, err := s.archive.PageAt(workspaceID, pageID, hash)
	if errors.Is(err, gitrepo.ErrNoRevision) {
		return tree.Page{}, errNotFound("revision")
	}
	if err != nil {
		return tree.Page{}, fmt.Errorf("load revision: %w", err)
	}
	return s.updatePage(ctx, workspaceID, pageID, true, func(f tree.Forest) tree.Forest {
		now := s.now()
		f = f.SetBlocks(pageID, snap.Blocks, now)
		f = f.SetIcon(pageID, snap.Icon, now)
		return f.SetCover(pageID, snap.CoverImage, now)
	})
}

// Search looks up pages of one workspace.
func (s *Service) Search(ctx context.Context, workspaceID, text string, limit, offset int) (search.Response, error) {
	// loading the workspace indexes its pages
	if _, err := s.ListPages(ctx, workspaceID); err != nil {
		return search.Response{}, err
	}
	return s.search.Search(ctx, search.Query{WorkspaceID: workspaceID, Text: text, Limit: limit, Offset: offset}), nil
}
