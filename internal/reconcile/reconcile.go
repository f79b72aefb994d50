// Package reconcile debounces page writes to the remote document store.
//
// Every page has at most one pending write and at most one write in flight.
// A newer edit replaces the pending write before it fires; an edit that
// arrives while a write is in flight is sent after that write completes.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inkwell/api/internal/cache"
	"inkwell/api/internal/store"
	"inkwell/api/internal/tree"
)

const (
	DefaultContentDelay    = 2 * time.Second
	DefaultStructuralDelay = 50 * time.Millisecond
)

type Status string

const (
	StatusSaved   Status = "saved"
	StatusUnsaved Status = "unsaved"
	StatusSaving  Status = "saving"
)

type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

type Key struct {
	WorkspaceID string
	PageID      string
}

// Write is one remote operation for a page. Fields names the columns an
// upsert sends; the rest of the stored page is left untouched.
type Write struct {
	Key    Key
	Op     Op
	Page   tree.Page
	Fields tree.Fields
	urgent bool
}

// merge folds a newer write into an older one for the same key.
func merge(older, newer Write) Write {
	if newer.Op == OpDelete {
		newer.urgent = true
		return newer
	}
	if older.Op == OpDelete {
		// Recreated after a pending delete: the remote copy needs everything.
		newer.Fields = tree.FieldsAll
		newer.urgent = true
		return newer
	}
	newer.Fields |= older.Fields
	newer.urgent = newer.urgent || older.urgent
	return newer
}

type Config struct {
	ContentDelay    time.Duration
	StructuralDelay time.Duration
}

type entry struct {
	pending  *Write
	timer    *time.Timer
	inFlight bool
	// due marks a pending write whose debounce elapsed during a flight.
	due bool
}

type Reconciler struct {
	store     store.DocumentStore
	mirror    *cache.PageMirror
	logger    zerolog.Logger
	cfg       Config
	persisted func(Write)

	mu      sync.Mutex
	entries map[Key]*entry
	status  map[string]Status
	subs    map[string]map[chan Status]struct{}
	flights sync.WaitGroup
}

type Option func(*Reconciler)

// WithMirror mirrors each workspace's page list into the local cache.
func WithMirror(m *cache.PageMirror) Option {
	return func(r *Reconciler) { r.mirror = m }
}

// WithOnPersisted registers a hook run after each successful write.
func WithOnPersisted(fn func(Write)) Option {
	return func(r *Reconciler) { r.persisted = fn }
}

func New(docs store.DocumentStore, cfg Config, logger zerolog.Logger, opts ...Option) *Reconciler {
	if cfg.ContentDelay <= 0 {
		cfg.ContentDelay = DefaultContentDelay
	}
	if cfg.StructuralDelay <= 0 {
		cfg.StructuralDelay = DefaultStructuralDelay
	}
	r := &Reconciler{
		store:   docs,
		cfg:     cfg,
		logger:  logger.With().Str("component", "reconcile").Logger(),
		entries: map[Key]*entry{},
		status:  map[string]Status{},
		subs:    map[string]map[chan Status]struct{}{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mirror stores the workspace's current pages in the local cache.
func (r *Reconciler) Mirror(ctx context.Context, workspaceID string, pages []tree.Page) {
	if r.mirror == nil {
		return
	}
	if err := r.mirror.Save(ctx, workspaceID, pages); err != nil {
		r.logger.Warn().Err(err).Str("workspace", workspaceID).Msg("mirror pages")
	}
}

// Schedule queues an upsert of the masked page fields. Content edits wait
// for the content debounce; structural ones go out almost at once.
func (r *Reconciler) Schedule(page tree.Page, fields tree.Fields) {
	if fields == 0 {
		return
	}
	r.enqueue(Write{
		Key:    Key{WorkspaceID: page.WorkspaceID, PageID: page.ID},
		Op:     OpUpsert,
		Page:   page,
		Fields: fields,
		urgent: !fields.IsContent(),
	})
}

// ScheduleDelete queues removal of the page, replacing any pending upsert.
func (r *Reconciler) ScheduleDelete(workspaceID, pageID string) {
	r.enqueue(Write{
		Key:    Key{WorkspaceID: workspaceID, PageID: pageID},
		Op:     OpDelete,
		Page:   tree.Page{ID: pageID, WorkspaceID: workspaceID},
		urgent: true,
	})
}

func (r *Reconciler) enqueue(w Write) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[w.Key]
	if e == nil {
		e = &entry{}
		r.entries[w.Key] = e
	}
	if e.pending != nil {
		w = merge(*e.pending, w)
	}
	e.pending = &w

	if e.timer != nil {
		e.timer.Stop()
	}
	delay := r.cfg.ContentDelay
	if w.urgent {
		delay = r.cfg.StructuralDelay
	}
	key := w.Key
	e.timer = time.AfterFunc(delay, func() { r.fire(key) })
	r.refreshLocked(key.WorkspaceID)
}

func (r *Reconciler) fire(key Key) {
	if w, ok := r.begin(key); ok {
		_ = r.run(w)
	}
}

// begin moves the pending write of key into flight. It reports false when
// there is nothing to send or another write for the key is in flight.
func (r *Reconciler) begin(key Key) (Write, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[key]
	if e == nil || e.pending == nil {
		return Write{}, false
	}
	if e.inFlight {
		e.due = true
		return Write{}, false
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	w := *e.pending
	e.pending = nil
	e.due = false
	e.inFlight = true
	r.flights.Add(1)
	r.refreshLocked(key.WorkspaceID)
	return w, true
}

// upsert merge-writes the page. A partial write onto a row the store does
// not hold yet would create it with column defaults, so it is widened to
// the whole page.
func (r *Reconciler) upsert(ctx context.Context, w Write) error {
	fields := w.Fields
	if fields != tree.FieldsAll {
		exists, err := r.store.PageExists(ctx, w.Key.WorkspaceID, w.Key.PageID)
		if err != nil {
			return err
		}
		if !exists {
			fields = tree.FieldsAll
		}
	}
	return r.store.UpsertPage(ctx, w.Page, fields)
}

func (r *Reconciler) run(w Write) error {
	defer r.flights.Done()

	// Remote calls carry no deadline; failure is detected only by error.
	ctx := context.Background()
	var err error
	switch w.Op {
	case OpDelete:
		err = r.store.DeletePage(ctx, w.Key.WorkspaceID, w.Key.PageID)
		if errors.Is(err, store.ErrNotFound) {
			err = nil
		}
	default:
		err = r.upsert(ctx, w)
	}

	r.mu.Lock()
	e := r.entries[w.Key]
	e.inFlight = false
	next := false
	if err != nil {
		r.logger.Error().Err(err).
			Str("workspace", w.Key.WorkspaceID).
			Str("page", w.Key.PageID).
			Str("op", string(w.Op)).
			Strs("fields", w.Fields.Names()).
			Msg("remote write failed")
		// Keep the write; the next edit or SaveNow carries it again.
		if e.pending != nil {
			merged := merge(w, *e.pending)
			e.pending = &merged
		} else {
			e.pending = &w
		}
		next = e.due
	} else {
		next = e.due && e.pending != nil
	}
	if e.pending == nil && e.timer == nil {
		delete(r.entries, w.Key)
	}
	r.refreshLocked(w.Key.WorkspaceID)
	r.mu.Unlock()

	if err == nil && r.persisted != nil {
		r.persisted(w)
	}
	if next {
		r.flights.Add(1)
		go func() {
			defer r.flights.Done()
			r.fire(w.Key)
		}()
	}
	return err
}

// SaveNow sends every pending write of the workspace without waiting for
// the debounce and returns the first failure. Writes already in flight
// are followed by their pending successors once they finish.
func (r *Reconciler) SaveNow(workspaceID string) error {
	r.mu.Lock()
	keys := make([]Key, 0)
	for key, e := range r.entries {
		if key.WorkspaceID == workspaceID && e.pending != nil {
			keys = append(keys, key)
		}
	}
	r.mu.Unlock()

	var first error
	for _, key := range keys {
		w, ok := r.begin(key)
		if !ok {
			continue
		}
		if err := r.run(w); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close flushes every pending write and waits for flights to finish or
// ctx to end.
func (r *Reconciler) Close(ctx context.Context) error {
	r.mu.Lock()
	workspaces := map[string]struct{}{}
	for key := range r.entries {
		workspaces[key.WorkspaceID] = struct{}{}
	}
	r.mu.Unlock()

	var first error
	for ws := range workspaces {
		if err := r.SaveNow(ws); err != nil && first == nil {
			first = err
		}
	}

	done := make(chan struct{})
	go func() {
		r.flights.Wait()
		close(done)
	}()
	select {
	case <-done:
		return first
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports the save indicator for a workspace.
func (r *Reconciler) Status(workspaceID string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.status[workspaceID]; ok {
		return s
	}
	return StatusSaved
}

// Subscribe streams indicator changes for a workspace, starting with the
// current value. Slow readers only see the latest status.
func (r *Reconciler) Subscribe(workspaceID string) (<-chan Status, func()) {
	ch := make(chan Status, 1)
	r.mu.Lock()
	if r.subs[workspaceID] == nil {
		r.subs[workspaceID] = map[chan Status]struct{}{}
	}
	r.subs[workspaceID][ch] = struct{}{}
	current, ok := r.status[workspaceID]
	if !ok {
		current = StatusSaved
	}
	ch <- current
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs[workspaceID], ch)
			if len(r.subs[workspaceID]) == 0 {
				delete(r.subs, workspaceID)
			}
			r.mu.Unlock()
			close(ch)
		})
	}
}

// refreshLocked recomputes the workspace indicator: saving while any write
// is in flight, unsaved while any is pending, saved otherwise.
func (r *Reconciler) refreshLocked(workspaceID string) {
	next := StatusSaved
	for key, e := range r.entries {
		if key.WorkspaceID != workspaceID {
			continue
		}
		if e.inFlight {
			next = StatusSaving
			break
		}
		if e.pending != nil {
			next = StatusUnsaved
		}
	}
	prev, ok := r.status[workspaceID]
	if !ok {
		prev = StatusSaved
	}
	if next == StatusSaved {
		delete(r.status, workspaceID)
	} else {
		r.status[workspaceID] = next
	}
	if prev == next {
		return
	}
	for ch := range r.subs[workspaceID] {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}
