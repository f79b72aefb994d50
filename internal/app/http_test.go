package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"inkwell/api/internal/block"
	"inkwell/api/internal/media"
	"inkwell/api/internal/rbac"
	"inkwell/api/internal/store"
	"inkwell/api/internal/tree"
)

type httpFixture struct {
	t      *testing.T
	svc    *Service
	store  *fakeStore
	server *HTTPServer
}

func newHTTPFixture(t *testing.T, deps Deps) *httpFixture {
	t.Helper()
	fs := newFakeStore()
	deps.Store = fs
	svc := newTestService(t, deps)
	return &httpFixture{t: t, svc: svc, store: fs, server: NewHTTPServer(svc, "*", zerolog.Nop())}
}

func (f *httpFixture) login(name string) string {
	f.t.Helper()
	_, token, err := f.svc.Login(name)
	if err != nil {
		f.t.Fatalf("Login() error = %v", err)
	}
	return token
}

func (f *httpFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			f.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func expectCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rr, status)
	var payload map[string]any
	decodeResponse(t, rr, &payload)
	if payload["code"] != code {
		t.Fatalf("expected code %s, got %v", code, payload["code"])
	}
}

// workspace creates a private workspace owned by the token's user.
func (f *httpFixture) workspace(token string) string {
	f.t.Helper()
	rr := f.do(http.MethodPost, "/api/workspaces", token, map[string]any{"name": "Team"})
	expectStatus(f.t, rr, http.StatusCreated)
	var ws store.Workspace
	decodeResponse(f.t, rr, &ws)
	return ws.ID
}

func (f *httpFixture) page(token, wsID string) tree.Page {
	f.t.Helper()
	rr := f.do(http.MethodPost, "/api/workspaces/"+wsID+"/pages", token, map[string]any{})
	expectStatus(f.t, rr, http.StatusCreated)
	var page tree.Page
	decodeResponse(f.t, rr, &page)
	return page
}

func TestHealthEndpoint(t *testing.T) {
	f := newHTTPFixture(t, Deps{})
	rr := f.do(http.MethodGet, "/api/health", "", nil)
	expectStatus(t, rr, http.StatusOK)

	var response map[string]any
	decodeResponse(t, rr, &response)
	if response["ok"] != true {
		t.Errorf("expected ok=true, got %v", response["ok"])
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("expected a request id header")
	}
}

func TestReadyEndpointReportsStoreFailure(t *testing.T) {
	f := newHTTPFixture(t, Deps{})
	f.store.pingFn = func(context.Context) error { return errors.New("connection refused") }

	rr := f.do(http.MethodGet, "/api/ready", "", nil)
	expectStatus(t, rr, http.StatusServiceUnavailable)
	var response map[string]any
	decodeResponse(t, rr, &response)
	if response["status"] != "not_ready" {
		t.Errorf("expected not_ready, got %v", response["status"])
	}
}

func TestPreflightAndUnknownRoutes(t *testing.T) {
	f := newHTTPFixture(t, Deps{})
	rr := f.do(http.MethodOptions, "/api/workspaces/ws1/pages", "", nil)
	expectStatus(t, rr, http.StatusNoContent)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected CORS origin *, got %q", got)
	}

	expectCode(t, f.do(http.MethodGet, "/api/nope", "", nil), http.StatusNotFound, "NOT_FOUND")
}

func TestSessionAndLogin(t *testing.T) {
	f := newHTTPFixture(t, Deps{})

	rr := f.do(http.MethodGet, "/api/session", "", nil)
	var anon map[string]any
	decodeResponse(t, rr, &anon)
	if anon["authenticated"] != false {
		t.Fatalf("expected anonymous session, got %v", anon)
	}

	rr = f.do(http.MethodPost, "/api/session/login", "", map[string]any{"name": "Avery"})
	expectStatus(t, rr, http.StatusOK)
	var login map[string]any
	decodeResponse(t, rr, &login)
	token, _ := login["token"].(string)
	if token == "" {
		t.Fatalf("expected token, got %v", login)
	}

	rr = f.do(http.MethodGet, "/api/session", token, nil)
	var session map[string]any
	decodeResponse(t, rr, &session)
	if session["authenticated"] != true || session["userName"] != "Avery" {
		t.Fatalf("unexpected session %v", session)
	}

	expectCode(t, f.do(http.MethodPost, "/api/session/login", "", map[string]any{"name": ""}), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestWorkspaceRoutesRequireToken(t *testing.T) {
	f := newHTTPFixture(t, Deps{})
	expectCode(t, f.do(http.MethodGet, "/api/workspaces", "", nil), http.StatusUnauthorized, "UNAUTHORIZED")
	expectCode(t, f.do(http.MethodGet, "/api/workspaces/ws1/pages", "garbage", nil), http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestJoinByInviteCode(t *testing.T) {
	f := newHTTPFixture(t, Deps{})
	owner := f.login("Owner")
	guest := f.login("Guest")

	rr := f.do(http.MethodPost, "/api/workspaces", owner, map[string]any{"name": "Club", "kind": "public"})
	expectStatus(t, rr, http.StatusCreated)
	var ws store.Workspace
	decodeResponse(t, rr, &ws)

	expectCode(t, f.do(http.MethodPost, "/api/workspaces/join", guest, map[string]any{"code": "WRONG"}), http.StatusNotFound, "INVALID_INVITE")

	rr = f.do(http.MethodPost, "/api/workspaces/join", guest, map[string]any{"code": ws.InviteCode})
	expectStatus(t, rr, http.StatusOK)

	rr = f.do(http.MethodGet, "/api/workspaces", guest, nil)
	var list struct {
		Workspaces []store.Workspace `json:"workspaces"`
	}
	decodeResponse(t, rr, &list)
	if len(list.Workspaces) != 1 || list.Workspaces[0].Role != string(rbac.RoleEditor) {
		t.Fatalf("unexpected workspaces %+v", list.Workspaces)
	}
}

func TestRoleGate(t *testing.T) {
	f := newHTTPFixture(t, Deps{})
	owner := f.login("Owner")
	wsID := f.workspace(owner)
	f.page(owner, wsID)

	viewer := f.login("Viewer")
	id, _ := f.svc.Identify(viewer)
	if err := f.store.AppendUserWorkspace(context.Background(), id.UserID, wsID, string(rbac.RoleViewer)); err != nil {
		t.Fatalf("AppendUserWorkspace() error = %v", err)
	}

	expectStatus(t, f.do(http.MethodGet, "/api/workspaces/"+wsID+"/pages", viewer, nil), http.StatusOK)
	expectCode(t, f.do(http.MethodPost, "/api/workspaces/"+wsID+"/pages", viewer, map[string]any{}), http.StatusForbidden, "FORBIDDEN")
	expectCode(t, f.do(http.MethodPost, "/api/workspaces/"+wsID+"/reindex", viewer, nil), http.StatusForbidden, "FORBIDDEN")

	stranger := f.login("Stranger")
	expectCode(t, f.do(http.MethodGet, "/api/workspaces/"+wsID+"/pages", stranger, nil), http.StatusNotFound, "NOT_FOUND")

	expectStatus(t, f.do(http.MethodPost, "/api/workspaces/"+wsID+"/reindex", owner, nil), http.StatusOK)
}

func TestPageLifecycle(t *testing.T) {
	f := newHTTPFixture(t, Deps{})
	token := f.login("Owner")
	wsID := f.workspace(token)
	base := "/api/workspaces/" + wsID
	parent := f.page(token, wsID)

	rr := f.do(http.MethodPost, base+"/pages", token, map[string]any{"parentId": parent.ID})
	expectStatus(t, rr, http.StatusCreated)
	var child tree.Page
	decodeResponse(t, rr, &child)

	rr = f.do(http.MethodPatch, base+"/pages/"+child.ID, token, map[string]any{"title": "Groceries", "isFavorite": true})
	expectStatus(t, rr, http.StatusOK)
	var patched tree.Page
	decodeResponse(t, rr, &patched)
	if patched.Title != "Groceries" || !patched.IsFavorite {
		t.Fatalf("unexpected patched page %+v", patched)
	}

	rr = f.do(http.MethodGet, base+"/pages/favorites", token, nil)
	var favs struct {
		Pages []tree.Page `json:"pages"`
	}
	decodeResponse(t, rr, &favs)
	if len(favs.Pages) != 1 || favs.Pages[0].ID != child.ID {
		t.Fatalf("unexpected favorites %+v", favs.Pages)
	}

	rr = f.do(http.MethodGet, base+"/pages/"+child.ID, token, nil)
	var detail PageDetail
	decodeResponse(t, rr, &detail)
	if len(detail.Breadcrumb) != 1 || detail.Breadcrumb[0].ID != parent.ID {
		t.Fatalf("unexpected breadcrumb %+v", detail.Breadcrumb)
	}

	expectCode(t, f.do(http.MethodPost, base+"/pages/"+parent.ID+"/move", token, map[string]any{"parentId": child.ID}), http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rr = f.do(http.MethodDelete, base+"/pages/"+parent.ID, token, nil)
	expectStatus(t, rr, http.StatusOK)
	var deleted struct {
		Removed []string `json:"removed"`
	}
	decodeResponse(t, rr, &deleted)
	if len(deleted.Removed) != 2 {
		t.Fatalf("expected 2 removed pages, got %v", deleted.Removed)
	}

	rr = f.do(http.MethodPost, base+"/undo", token, nil)
	expectStatus(t, rr, http.StatusOK)
	expectStatus(t, f.do(http.MethodGet, base+"/pages/"+child.ID, token, nil), http.StatusOK)

	rr = f.do(http.MethodPost, base+"/shortcut", token, map[string]any{"combo": "mod+shift+z"})
	expectStatus(t, rr, http.StatusOK)
	expectCode(t, f.do(http.MethodGet, base+"/pages/"+child.ID, token, nil), http.StatusNotFound, "NOT_FOUND")
}

func TestEditorActions(t *testing.T) {
	f := newHTTPFixture(t, Deps{})
	token := f.login("Owner")
	wsID := f.workspace(token)
	page := f.page(token, wsID)
	base := "/api/workspaces/" + wsID + "/pages/" + page.ID + "/editor"

	rr := f.do(http.MethodGet, base, token, nil)
	expectStatus(t, rr, http.StatusOK)
	var opened struct {
		View struct {
			Blocks []block.Block `json:"blocks"`
		} `json:"view"`
		ReadOnly bool `json:"readOnly"`
	}
	decodeResponse(t, rr, &opened)
	if opened.ReadOnly || len(opened.View.Blocks) != 2 {
		t.Fatalf("unexpected editor view %+v", opened)
	}
	textID := opened.View.Blocks[1].ID

	rr = f.do(http.MethodPost, base+"/input", token, map[string]any{"blockId": textID, "content": "- ", "caret": 2})
	expectStatus(t, rr, http.StatusOK)
	var after struct {
		Handled bool `json:"handled"`
		View    struct {
			Blocks []block.Block `json:"blocks"`
		} `json:"view"`
	}
	decodeResponse(t, rr, &after)
	if after.View.Blocks[1].Kind != block.KindBullet {
		t.Fatalf("expected bullet list, got %s", after.View.Blocks[1].Kind)
	}

	rr = f.do(http.MethodPost, base+"/key", token, map[string]any{"key": "Enter", "blockId": textID, "head": "milk", "tail": ""})
	expectStatus(t, rr, http.StatusOK)
	decodeResponse(t, rr, &after)
	if !after.Handled || len(after.View.Blocks) != 3 || after.View.Blocks[2].Kind != block.KindBullet {
		t.Fatalf("unexpected view after Enter %+v", after)
	}

	detail, err := f.svc.GetPage(context.Background(), wsID, page.ID)
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if len(detail.Page.Blocks) != 3 {
		t.Fatalf("expected the page to hold 3 blocks, got %d", len(detail.Page.Blocks))
	}

	expectCode(t, f.do(http.MethodPost, base+"/kind", token, map[string]any{"blockId": textID, "kind": "table"}), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	expectCode(t, f.do(http.MethodPost, base+"/explode", token, map[string]any{}), http.StatusNotFound, "UNKNOWN_ACTION")
}

func TestExportEndpoint(t *testing.T) {
	f := newHTTPFixture(t, Deps{})
	token := f.login("Owner")
	wsID := f.workspace(token)
	page := f.page(token, wsID)
	base := "/api/workspaces/" + wsID + "/pages/" + page.ID + "/export"

	rr := f.do(http.MethodGet, base+"?format=md", token, nil)
	expectStatus(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Fatalf("expected markdown content type, got %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("expected attachment, got %q", cd)
	}

	expectCode(t, f.do(http.MethodGet, base+"?format=rtf", token, nil), http.StatusBadRequest, "UNSUPPORTED_FORMAT")
}

func TestImportEndpoint(t *testing.T) {
	f := newHTTPFixture(t, Deps{})
	token := f.login("Owner")
	wsID := f.workspace(token)

	rr := f.do(http.MethodPost, "/api/workspaces/"+wsID+"/pages/import", token, map[string]any{
		"name":     "trip.md",
		"markdown": "# Trip\n\n- boots\n- map\n",
	})
	expectStatus(t, rr, http.StatusCreated)
	var page tree.Page
	decodeResponse(t, rr, &page)
	if page.Title != "Trip" {
		t.Fatalf("expected title Trip, got %q", page.Title)
	}
}

func TestUploadMediaEndpoint(t *testing.T) {
	f := newHTTPFixture(t, Deps{Media: media.NewService(media.NewMemoryStore("https://cdn.test"), 1024)})
	token := f.login("Owner")
	wsID := f.workspace(token)
	page := f.page(token, wsID)
	img := block.New(block.KindImage)
	addBlock(t, f.svc, wsID, page.ID, img)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "photo.png")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	_, _ = part.Write([]byte("not really a png"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/workspaces/"+wsID+"/pages/"+page.ID+"/blocks/"+img.ID+"/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rr, req)

	// CreateFormFile labels parts application/octet-stream
	expectCode(t, rr, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	file := block.New(block.KindFile)
	addBlock(t, f.svc, wsID, page.ID, file)
	body.Reset()
	mw = multipart.NewWriter(&body)
	part, _ = mw.CreateFormFile("file", "notes.pdf")
	_, _ = part.Write([]byte("%PDF"))
	_ = mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/api/workspaces/"+wsID+"/pages/"+page.ID+"/blocks/"+file.ID+"/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusCreated)

	var obj media.Object
	decodeResponse(t, rr, &obj)
	if !strings.HasPrefix(obj.URL, "https://cdn.test/"+wsID+"/") {
		t.Fatalf("unexpected object url %q", obj.URL)
	}
}

func TestStatusAndSave(t *testing.T) {
	f := newHTTPFixture(t, Deps{})
	token := f.login("Owner")
	wsID := f.workspace(token)
	f.page(token, wsID)

	rr := f.do(http.MethodPost, "/api/workspaces/"+wsID+"/save", token, nil)
	expectStatus(t, rr, http.StatusOK)
	rr = f.do(http.MethodGet, "/api/workspaces/"+wsID+"/status", token, nil)
	expectStatus(t, rr, http.StatusOK)
	var status map[string]any
	decodeResponse(t, rr, &status)
	if _, ok := status["status"]; !ok {
		t.Fatalf("expected a status field, got %v", status)
	}
}
