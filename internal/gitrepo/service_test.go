package gitrepo

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"inkwell/api/internal/block"
	"inkwell/api/internal/tree"
)

func samplePage(title, body string) tree.Page {
	return tree.Page{
		ID:          "pg-1",
		WorkspaceID: "ws-1",
		Kind:        tree.KindPage,
		Title:       title,
		Blocks: []block.Block{
			{ID: "b1", Kind: block.KindHeading1, Content: title},
			{ID: "b2", Kind: block.KindText, Content: body},
		},
		UpdatedAt: time.Unix(100, 0),
	}
}

func TestRecordLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	first, changed, err := svc.Record("ws-1", samplePage("Groceries", "milk"), "Avery Quinn", "Update Groceries")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !changed || first.Hash == "" {
		t.Fatalf("expected first revision, got %+v changed=%v", first, changed)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "ws-1", "pages", "pg-1.json")); err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}

	// Navigation state is not archived, so this produces no commit.
	same := samplePage("Groceries", "milk")
	same.IsExpanded = true
	same.LastOpenedAt = time.Unix(500, 0)
	if _, changed, err := svc.Record("ws-1", same, "Avery Quinn", "noop"); err != nil || changed {
		t.Fatalf("expected unchanged record, changed=%v err=%v", changed, err)
	}

	if _, changed, err := svc.Record("ws-1", samplePage("Groceries", "milk, eggs"), "Avery Quinn", "Update Groceries"); err != nil || !changed {
		t.Fatalf("expected second revision, changed=%v err=%v", changed, err)
	}

	history, err := svc.History("ws-1", "pg-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(history))
	}
	if history[1].Hash != first.Hash {
		t.Fatalf("expected oldest revision last, got %s want %s", history[1].Hash, first.Hash)
	}
	if history[0].Author != "Avery Quinn" {
		t.Fatalf("unexpected author %q", history[0].Author)
	}

	snap, err := svc.PageAt("ws-1", "pg-1", first.Hash)
	if err != nil {
		t.Fatalf("PageAt() error = %v", err)
	}
	if snap.Title != "Groceries" || len(snap.Blocks) != 2 || snap.Blocks[1].Content != "milk" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	limited, err := svc.History("ws-1", "pg-1", 1)
	if err != nil {
		t.Fatalf("History(limit) error = %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestHistoryIsScopedToPage(t *testing.T) {
	svc := New(t.TempDir())
	other := samplePage("Travel", "passport")
	other.ID = "pg-2"

	if _, _, err := svc.Record("ws-1", samplePage("Groceries", "milk"), "a", "one"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, _, err := svc.Record("ws-1", other, "a", "two"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	history, err := svc.History("ws-1", "pg-2", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].Message != "two" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestHistoryUnknownWorkspaceIsEmpty(t *testing.T) {
	svc := New(t.TempDir())
	history, err := svc.History("missing", "pg-1", 5)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected no history, got %d", len(history))
	}
}

func TestForgetKeepsHistory(t *testing.T) {
	svc := New(t.TempDir())
	rev, _, err := svc.Record("ws-1", samplePage("Groceries", "milk"), "a", "one")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := svc.Forget("ws-1", "pg-1", "a"); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	if err := svc.Forget("ws-1", "pg-1", "a"); err != nil {
		t.Fatalf("second Forget() error = %v", err)
	}
	if _, err := svc.PageAt("ws-1", "pg-1", rev.Hash); err != nil {
		t.Fatalf("old revision should stay readable: %v", err)
	}
	history, err := svc.History("ws-1", "pg-1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected record and delete revisions, got %d", len(history))
	}
}

func TestConcurrentRecordsSerialize(t *testing.T) {
	svc := New(t.TempDir())
	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := samplePage("Page", "body")
			p.ID = "pg-" + string(rune('a'+i))
			if _, _, err := svc.Record("ws-1", p, "a", "write"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Record() error = %v", err)
	}
}

func TestSanitizeEmail(t *testing.T) {
	if got := sanitizeEmail("Avery Quinn"); got != "Avery.Quinn" {
		t.Fatalf("sanitizeEmail() = %q", got)
	}
	if got := sanitizeEmail("!!"); got != "user" {
		t.Fatalf("sanitizeEmail() = %q", got)
	}
}
