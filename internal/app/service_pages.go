package app

import (
	"context"
	"slices"
	"strings"

	"inkwell/api/internal/editor"
	"inkwell/api/internal/tree"
)

// PageDetail is a page with its position in the tree.
type PageDetail struct {
	Page       tree.Page   `json:"page"`
	Breadcrumb []tree.Page `json:"breadcrumb"`
	Children   []tree.Page `json:"children"`
}

func (s *Service) ListPages(ctx context.Context, workspaceID string) ([]tree.Page, error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	defer st.mu.Unlock()
	return st.forest.Pages(), nil
}

func (s *Service) GetPage(ctx context.Context, workspaceID, pageID string) (PageDetail, error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return PageDetail{}, err
	}
	defer st.mu.Unlock()
	page, ok := st.forest.Page(pageID)
	if !ok {
		return PageDetail{}, errNotFound("page")
	}
	return PageDetail{
		Page:       page,
		Breadcrumb: st.forest.AncestorChain(pageID),
		Children:   st.forest.ChildrenOf(pageID),
	}, nil
}

func (s *Service) Favorites(ctx context.Context, workspaceID string) ([]tree.Page, error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	defer st.mu.Unlock()
	return st.forest.Favorites(), nil
}

func (s *Service) Recent(ctx context.Context, workspaceID string, n int) ([]tree.Page, error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	defer st.mu.Unlock()
	return st.forest.Recent(n), nil
}

// CreatePage adds an empty page under parentID, or at the root when empty.
func (s *Service) CreatePage(ctx context.Context, workspaceID, parentID string, kind tree.Kind) (tree.Page, error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return tree.Page{}, err
	}
	defer st.mu.Unlock()
	next, id := st.forest.AddPage(parentID, kind, s.now())
	if id == "" {
		return tree.Page{}, errNotFound("parent page")
	}
	s.applyLocked(ctx, st, next, true, nil)
	page, _ := st.forest.Page(id)
	return page, nil
}

// DeletePage removes the page, its descendants and every reference to them.
func (s *Service) DeletePage(ctx context.Context, workspaceID, pageID string) ([]string, error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	defer st.mu.Unlock()
	if !st.forest.Has(pageID) {
		return nil, errNotFound("page")
	}
	next, removed := st.forest.DeletePage(pageID, s.now())
	s.applyLocked(ctx, st, next, true, nil)
	return removed, nil
}

func (s *Service) RenamePage(ctx context.Context, workspaceID, pageID, title string) (tree.Page, error) {
	return s.updatePage(ctx, workspaceID, pageID, true, func(f tree.Forest) tree.Forest {
		return f.RenamePage(pageID, title, s.now())
	})
}

// MovePage reparents a page. Moves under the page itself or one of its
// descendants are refused.
func (s *Service) MovePage(ctx context.Context, workspaceID, pageID, parentID string, index int) (tree.Page, error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return tree.Page{}, err
	}
	defer st.mu.Unlock()
	page, ok := st.forest.Page(pageID)
	if !ok {
		return tree.Page{}, errNotFound("page")
	}
	if parentID != "" && !st.forest.Has(parentID) {
		return tree.Page{}, errNotFound("parent page")
	}
	next := st.forest.MovePage(pageID, parentID, index, s.now())
	if tree.Equal(next, st.forest) && page.ParentID != parentID {
		return tree.Page{}, errValidation("a page cannot move under itself")
	}
	s.applyLocked(ctx, st, next, true, nil)
	page, _ = st.forest.Page(pageID)
	return page, nil
}

// PagePatch carries optional metadata updates.
type PagePatch struct {
	Title      *string `json:"title"`
	Icon       *string `json:"icon"`
	CoverImage *string `json:"coverImage"`
	IsFavorite *bool   `json:"isFavorite"`
	IsExpanded *bool   `json:"isExpanded"`
}

// PatchPage applies metadata updates as one undo step. Expanding or
// collapsing a page in the sidebar alone is not recorded.
func (s *Service) PatchPage(ctx context.Context, workspaceID, pageID string, patch PagePatch) (tree.Page, error) {
	record := patch.Title != nil || patch.Icon != nil || patch.CoverImage != nil || patch.IsFavorite != nil
	return s.updatePage(ctx, workspaceID, pageID, record, func(f tree.Forest) tree.Forest {
		now := s.now()
		if patch.Title != nil {
			f = f.RenamePage(pageID, *patch.Title, now)
		}
		if patch.Icon != nil {
			f = f.SetIcon(pageID, strings.TrimSpace(*patch.Icon), now)
		}
		if patch.CoverImage != nil {
			f = f.SetCover(pageID, strings.TrimSpace(*patch.CoverImage), now)
		}
		if patch.IsFavorite != nil {
			f = f.SetFavorite(pageID, *patch.IsFavorite, now)
		}
		if patch.IsExpanded != nil {
			f = f.SetExpanded(pageID, *patch.IsExpanded)
		}
		return f
	})
}

func (s *Service) updatePage(ctx context.Context, workspaceID, pageID string, record bool, fn func(tree.Forest) tree.Forest) (tree.Page, error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return tree.Page{}, err
	}
	defer st.mu.Unlock()
	if !st.forest.Has(pageID) {
		return tree.Page{}, errNotFound("page")
	}
	s.applyLocked(ctx, st, fn(st.forest), record, nil)
	page, _ := st.forest.Page(pageID)
	return page, nil
}

// OpenEditor returns the editing session of a page, starting one when
// needed, and stamps the page as recently opened.
func (s *Service) OpenEditor(ctx context.Context, workspaceID, pageID string) (*editor.Session, error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	defer st.mu.Unlock()
	page, ok := st.forest.Page(pageID)
	if !ok {
		return nil, errNotFound("page")
	}
	sess, ok := st.sessions[pageID]
	if !ok {
		sess = s.newSession(ctx, workspaceID, page)
		st.sessions[pageID] = sess
	}
	s.applyLocked(ctx, st, st.forest.MarkOpened(pageID, s.now()), false, nil)
	return sess, nil
}

func (s *Service) newSession(ctx context.Context, workspaceID string, page tree.Page) *editor.Session {
	var sess *editor.Session
	sess = editor.Open(ctx, page.ID, page.Blocks, editor.Options{
		Limits:   s.limits,
		Collapse: s.collapse,
		Pages:    pagesPort{svc: s, workspaceID: workspaceID},
		Suggest:  s.suggest,
		OnChange: func(change editor.Change) {
			s.editorChanged(workspaceID, page.ID, sess, change)
		},
	})
	return sess
}

// editorChanged stores the block list emitted by a session. Deliveries that
// a newer edit overtook are dropped under the workspace lock, so the forest
// follows edits in the order the session committed them.
func (s *Service) editorChanged(workspaceID, pageID string, origin *editor.Session, change editor.Change) {
	ctx := context.Background()
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		s.logger.Error().Err(err).Str("workspace", workspaceID).Str("page", pageID).Msg("apply editor change")
		return
	}
	defer st.mu.Unlock()
	if !origin.Current(change.Seq) {
		return
	}
	s.applyLocked(ctx, st, st.forest.SetBlocks(pageID, change.Blocks, s.now()), true, origin)
	// the forest drops references to pages that no longer exist
	if page, ok := st.forest.Page(pageID); ok && !slices.Equal(page.Blocks, change.Blocks) {
		origin.Amend(change.Seq, page.Blocks)
	}
}

// pagesPort gives an editor session access to its workspace.
type pagesPort struct {
	svc         *Service
	workspaceID string
}

func (p pagesPort) List() []editor.PageOption {
	pages, err := p.svc.ListPages(context.Background(), p.workspaceID)
	if err != nil {
		return nil
	}
	out := make([]editor.PageOption, 0, len(pages))
	for _, page := range pages {
		out = append(out, editor.PageOption{ID: page.ID, Title: page.Title, Icon: page.Icon})
	}
	return out
}

func (p pagesPort) CreateChild(parentID string) (editor.PageOption, error) {
	page, err := p.svc.CreatePage(context.Background(), p.workspaceID, parentID, tree.KindPage)
	if err != nil {
		return editor.PageOption{}, err
	}
	return editor.PageOption{ID: page.ID, Title: page.Title, Icon: page.Icon}, nil
}

func (p pagesPort) Delete(pageID string) {
	if _, err := p.svc.DeletePage(context.Background(), p.workspaceID, pageID); err != nil {
		p.svc.logger.Warn().Err(err).Str("workspace", p.workspaceID).Str("page", pageID).Msg("delete embedded page")
	}
}
