package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inkwell/api/internal/block"
	"inkwell/api/internal/cache"
	"inkwell/api/internal/config"
	"inkwell/api/internal/editor"
	"inkwell/api/internal/engine"
	"inkwell/api/internal/export"
	"inkwell/api/internal/gitrepo"
	"inkwell/api/internal/history"
	"inkwell/api/internal/media"
	"inkwell/api/internal/reconcile"
	"inkwell/api/internal/search"
	"inkwell/api/internal/store"
	"inkwell/api/internal/suggest"
	"inkwell/api/internal/tree"
)

// Archive keeps page revisions.
type Archive interface {
	Record(workspaceID string, page tree.Page, author, message string) (gitrepo.Revision, bool, error)
	Forget(workspaceID, pageID, author string) error
	History(workspaceID, pageID string, limit int) ([]gitrepo.Revision, error)
	PageAt(workspaceID, pageID, hash string) (gitrepo.Snapshot, error)
}

// Deps are the collaborators of a Service. Only Store is required; search
// defaults to an in-memory index.
type Deps struct {
	Store   store.DocumentStore
	Cache   cache.Store
	Archive Archive
	Search  *search.Service
	Export  *export.Service
	Media   *media.Service
	Suggest suggest.Provider
	Logger  zerolog.Logger
}

const archiveAuthor = "inkwell"

// Service is the single mutator of workspace state. Every workspace has its
// own lock; all page and block changes go through applyLocked.
type Service struct {
	cfg      config.Config
	store    store.DocumentStore
	mirror   *cache.PageMirror
	collapse *cache.CollapseStore
	recon    *reconcile.Reconciler
	archive  Archive
	search   *search.Service
	exporter *export.Service
	media    *media.Service
	suggest  suggest.Provider
	logger   zerolog.Logger
	limits   engine.Limits
	now      func() time.Time

	mu         sync.Mutex
	workspaces map[string]*workspaceState
}

type workspaceState struct {
	mu       sync.Mutex
	id       string
	loaded   bool
	forest   tree.Forest
	history  *history.History[tree.Forest]
	sessions map[string]*editor.Session
}

func New(cfg config.Config, deps Deps) *Service {
	kv := deps.Cache
	if kv == nil {
		kv = cache.NewMemoryStore()
	}
	exporter := deps.Export
	if exporter == nil {
		exporter = export.NewService()
	}
	provider := deps.Suggest
	if provider == nil {
		provider = suggest.None
	}
	searcher := deps.Search
	if searcher == nil {
		searcher = search.NewService(nil, search.NewMemory(), deps.Logger)
	}
	s := &Service{
		cfg:        cfg,
		store:      deps.Store,
		mirror:     cache.NewPageMirror(kv),
		collapse:   cache.NewCollapseStore(kv),
		archive:    deps.Archive,
		search:     searcher,
		exporter:   exporter,
		media:      deps.Media,
		suggest:    provider,
		logger:     deps.Logger.With().Str("component", "app").Logger(),
		limits:     engine.Limits{Max: cfg.MaxBlocks, Warn: cfg.WarnBlocks},
		now:        func() time.Time { return time.Now().UTC() },
		workspaces: map[string]*workspaceState{},
	}
	s.recon = reconcile.New(deps.Store, reconcile.Config{
		ContentDelay:    cfg.ContentDebounce,
		StructuralDelay: cfg.StructuralDebounce,
	}, deps.Logger,
		reconcile.WithMirror(s.mirror),
		reconcile.WithOnPersisted(s.persisted),
	)
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close flushes pending remote writes.
func (s *Service) Close(ctx context.Context) error {
	return s.recon.Close(ctx)
}

// lock returns the loaded workspace with its mutex held.
func (s *Service) lock(ctx context.Context, workspaceID string) (*workspaceState, error) {
	s.mu.Lock()
	st, ok := s.workspaces[workspaceID]
	if !ok {
		st = &workspaceState{
			id:       workspaceID,
			history:  history.New(s.cfg.HistoryLimit, tree.Equal),
			sessions: map[string]*editor.Session{},
		}
		s.workspaces[workspaceID] = st
	}
	s.mu.Unlock()

	st.mu.Lock()
	if st.loaded {
		return st, nil
	}
	if err := s.load(ctx, st); err != nil {
		st.mu.Unlock()
		return nil, err
	}
	return st, nil
}

// load reads the workspace from the document store, falling back to the
// cached mirror when the store is unreachable, and repairs broken links.
func (s *Service) load(ctx context.Context, st *workspaceState) error {
	pages, err := s.store.ListPages(ctx, st.id)
	if err != nil {
		cached, cacheErr := s.mirror.Load(ctx, st.id)
		if cacheErr != nil {
			return fmt.Errorf("load workspace %s: %w", st.id, err)
		}
		s.logger.Warn().Err(err).Str("workspace", st.id).Msg("document store unavailable, using cached pages")
		pages = cached
	}

	forest := tree.New(st.id, pages...)
	if problems := forest.Validate(); len(problems) > 0 {
		repaired := forest.Repair()
		s.logger.Warn().Str("workspace", st.id).Int("problems", len(problems)).Msg("repaired workspace tree")
		s.schedule(st.id, tree.Diff(forest, repaired))
		forest = repaired
	}
	st.forest = forest
	st.loaded = true

	s.search.Reindex(ctx, forest.Pages())
	s.recon.Mirror(ctx, st.id, forest.Pages())
	return nil
}

// applyLocked installs next as the workspace state, records an undo step
// when asked and the change is structural, schedules remote writes, and
// pushes new block lists into open editor sessions other than origin.
func (s *Service) applyLocked(ctx context.Context, st *workspaceState, next tree.Forest, record bool, origin *editor.Session) []tree.Change {
	prev := st.forest
	changes := tree.Diff(prev, next)
	if len(changes) == 0 {
		return nil
	}
	if record && structuralChange(prev, changes) {
		st.history.Record(prev, next)
	}
	st.forest = next
	s.schedule(st.id, changes)
	s.recon.Mirror(ctx, st.id, next.Pages())

	for _, c := range changes {
		sess, ok := st.sessions[c.PageID]
		if !ok {
			continue
		}
		switch {
		case c.Op == tree.OpDeleted:
			delete(st.sessions, c.PageID)
		case c.Fields.Has(tree.FieldBlocks) && sess != origin:
			sess.Sync(c.Page.Blocks)
		}
	}
	return changes
}

func (s *Service) schedule(workspaceID string, changes []tree.Change) {
	for _, c := range changes {
		if c.Op == tree.OpDeleted {
			s.recon.ScheduleDelete(workspaceID, c.PageID)
			continue
		}
		s.recon.Schedule(c.Page, c.Fields)
	}
}

// structuralChange reports whether a transition deserves an undo step.
// Typing inside existing blocks does not; anything else does.
func structuralChange(prev tree.Forest, changes []tree.Change) bool {
	if tree.IsStructural(changes) {
		return true
	}
	for _, c := range changes {
		if !c.Fields.Has(tree.FieldBlocks) {
			continue
		}
		old, _ := prev.Page(c.PageID)
		if !sameShape(old.Blocks, c.Page.Blocks) {
			return true
		}
	}
	return false
}

func sameShape(a, b []block.Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		x.Content, y.Content = "", ""
		if x != y {
			return false
		}
	}
	return true
}

// persisted runs after a remote write succeeded.
func (s *Service) persisted(w reconcile.Write) {
	ws, pageID := w.Key.WorkspaceID, w.Key.PageID
	if w.Op == reconcile.OpDelete {
		s.search.DeletePage(pageID)
		if s.archive != nil {
			if err := s.archive.Forget(ws, pageID, archiveAuthor); err != nil {
				s.logger.Error().Err(err).Str("workspace", ws).Str("page", pageID).Msg("archive delete")
			}
		}
		return
	}

	if w.Fields&(tree.FieldTitle|tree.FieldBlocks|tree.FieldIcon) != 0 {
		s.search.IndexPage(w.Page)
	}
	if s.archive != nil && w.Fields&archivedFields != 0 {
		if _, _, err := s.archive.Record(ws, w.Page, archiveAuthor, "Update "+w.Page.Title); err != nil {
			s.logger.Error().Err(err).Str("workspace", ws).Str("page", pageID).Msg("archive page")
		}
	}
}

const archivedFields = tree.FieldTitle | tree.FieldIcon | tree.FieldCover | tree.FieldBlocks | tree.FieldParent | tree.FieldKind

// SaveNow sends every pending write of the workspace at once.
func (s *Service) SaveNow(workspaceID string) error {
	return s.recon.SaveNow(workspaceID)
}

func (s *Service) SaveStatus(workspaceID string) reconcile.Status {
	return s.recon.Status(workspaceID)
}

// SubscribeStatus streams the save indicator of a workspace.
func (s *Service) SubscribeStatus(workspaceID string) (<-chan reconcile.Status, func()) {
	return s.recon.Subscribe(workspaceID)
}

// Undo restores the previous structural snapshot of the workspace.
func (s *Service) Undo(ctx context.Context, workspaceID string) (bool, error) {
	return s.step(ctx, workspaceID, (*history.History[tree.Forest]).Undo)
}

func (s *Service) Redo(ctx context.Context, workspaceID string) (bool, error) {
	return s.step(ctx, workspaceID, (*history.History[tree.Forest]).Redo)
}

func (s *Service) step(ctx context.Context, workspaceID string, move func(*history.History[tree.Forest], tree.Forest) (tree.Forest, bool)) (bool, error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return false, err
	}
	defer st.mu.Unlock()
	target, ok := move(st.history, st.forest)
	if !ok {
		return false, nil
	}
	s.applyLocked(ctx, st, target, false, nil)
	return true, nil
}

// HistoryDepth reports how many undo and redo steps are available.
func (s *Service) HistoryDepth(ctx context.Context, workspaceID string) (undo, redo int, err error) {
	st, err := s.lock(ctx, workspaceID)
	if err != nil {
		return 0, 0, err
	}
	defer st.mu.Unlock()
	undo, redo = st.history.Depth()
	return undo, redo, nil
}
