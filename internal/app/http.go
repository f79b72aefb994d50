package app

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"inkwell/api/internal/auth"
	"inkwell/api/internal/rbac"
	"inkwell/api/internal/store"
	"inkwell/api/internal/tree"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     zerolog.Logger
	router     *mux.Router
}

func NewHTTPServer(service *Service, corsOrigin string, logger zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		logger:     logger.With().Str("component", "http").Logger(),
	}
	s.router = s.routes()
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(s.router)
}

func (s *HTTPServer) routes() *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/session/login", s.handleLogin).Methods(http.MethodPost)

	api.HandleFunc("/workspaces", s.authed(s.handleListWorkspaces)).Methods(http.MethodGet)
	api.HandleFunc("/workspaces", s.authed(s.handleCreateWorkspace)).Methods(http.MethodPost)
	api.HandleFunc("/workspaces/join", s.authed(s.handleJoinWorkspace)).Methods(http.MethodPost)

	ws := api.PathPrefix("/workspaces/{ws}").Subrouter()
	ws.HandleFunc("/pages", s.inWorkspace(rbac.ActionRead, s.handleListPages)).Methods(http.MethodGet)
	ws.HandleFunc("/pages", s.inWorkspace(rbac.ActionWrite, s.handleCreatePage)).Methods(http.MethodPost)
	ws.HandleFunc("/pages/favorites", s.inWorkspace(rbac.ActionRead, s.handleFavorites)).Methods(http.MethodGet)
	ws.HandleFunc("/pages/recent", s.inWorkspace(rbac.ActionRead, s.handleRecent)).Methods(http.MethodGet)
	ws.HandleFunc("/pages/import", s.inWorkspace(rbac.ActionWrite, s.handleImport)).Methods(http.MethodPost)
	ws.HandleFunc("/pages/{page}", s.inWorkspace(rbac.ActionRead, s.handleGetPage)).Methods(http.MethodGet)
	ws.HandleFunc("/pages/{page}", s.inWorkspace(rbac.ActionWrite, s.handlePatchPage)).Methods(http.MethodPatch)
	ws.HandleFunc("/pages/{page}", s.inWorkspace(rbac.ActionWrite, s.handleDeletePage)).Methods(http.MethodDelete)
	ws.HandleFunc("/pages/{page}/move", s.inWorkspace(rbac.ActionWrite, s.handleMovePage)).Methods(http.MethodPost)
	ws.HandleFunc("/pages/{page}/export", s.inWorkspace(rbac.ActionRead, s.handleExport)).Methods(http.MethodGet)
	ws.HandleFunc("/pages/{page}/revisions", s.inWorkspace(rbac.ActionRead, s.handleRevisions)).Methods(http.MethodGet)
	ws.HandleFunc("/pages/{page}/revisions/{hash}/restore", s.inWorkspace(rbac.ActionWrite, s.handleRestore)).Methods(http.MethodPost)
	ws.HandleFunc("/pages/{page}/blocks/{block}/media", s.inWorkspace(rbac.ActionWrite, s.handleUploadMedia)).Methods(http.MethodPost)
	ws.HandleFunc("/pages/{page}/editor", s.inWorkspace(rbac.ActionRead, s.handleOpenEditor)).Methods(http.MethodGet)
	ws.HandleFunc("/pages/{page}/editor/{action}", s.inWorkspace(rbac.ActionWrite, s.handleEditorAction)).Methods(http.MethodPost)

	ws.HandleFunc("/history", s.inWorkspace(rbac.ActionRead, s.handleHistory)).Methods(http.MethodGet)
	ws.HandleFunc("/undo", s.inWorkspace(rbac.ActionWrite, s.handleUndo)).Methods(http.MethodPost)
	ws.HandleFunc("/redo", s.inWorkspace(rbac.ActionWrite, s.handleRedo)).Methods(http.MethodPost)
	ws.HandleFunc("/shortcut", s.inWorkspace(rbac.ActionWrite, s.handleShortcut)).Methods(http.MethodPost)
	ws.HandleFunc("/save", s.inWorkspace(rbac.ActionWrite, s.handleSave)).Methods(http.MethodPost)
	ws.HandleFunc("/status", s.inWorkspace(rbac.ActionRead, s.handleStatus)).Methods(http.MethodGet)
	ws.HandleFunc("/status/stream", s.inWorkspace(rbac.ActionRead, s.handleStatusStream)).Methods(http.MethodGet)
	ws.HandleFunc("/search", s.inWorkspace(rbac.ActionRead, s.handleSearch)).Methods(http.MethodGet)
	ws.HandleFunc("/reindex", s.inWorkspace(rbac.ActionManage, s.handleReindex)).Methods(http.MethodPost)
	return router
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"store": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["store"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
		return
	}
	id, err := s.service.Identify(token)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "userName": id.Name, "userId": id.UserID})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	id, token, err := s.service.Login(body.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "userName": id.Name, "userId": id.UserID})
}

func (s *HTTPServer) handleListWorkspaces(w http.ResponseWriter, r *http.Request, id Identity) {
	list, err := s.service.ListWorkspaces(r.Context(), id.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspaces": list})
}

func (s *HTTPServer) handleCreateWorkspace(w http.ResponseWriter, r *http.Request, id Identity) {
	var body struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	ws, err := s.service.CreateWorkspace(r.Context(), id.UserID, body.Name, body.Kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *HTTPServer) handleJoinWorkspace(w http.ResponseWriter, r *http.Request, id Identity) {
	var body struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	ws, err := s.service.JoinWorkspace(r.Context(), id.UserID, body.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *HTTPServer) handleListPages(w http.ResponseWriter, r *http.Request, c call) {
	pages, err := s.service.ListPages(r.Context(), c.workspaceID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": nonNilPages(pages)})
}

func (s *HTTPServer) handleCreatePage(w http.ResponseWriter, r *http.Request, c call) {
	var body struct {
		ParentID string    `json:"parentId"`
		Kind     tree.Kind `json:"kind"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	page, err := s.service.CreatePage(r.Context(), c.workspaceID, body.ParentID, body.Kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (s *HTTPServer) handleFavorites(w http.ResponseWriter, r *http.Request, c call) {
	pages, err := s.service.Favorites(r.Context(), c.workspaceID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": nonNilPages(pages)})
}

func (s *HTTPServer) handleRecent(w http.ResponseWriter, r *http.Request, c call) {
	pages, err := s.service.Recent(r.Context(), c.workspaceID, queryInt(r, "limit", 10))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": nonNilPages(pages)})
}

func (s *HTTPServer) handleImport(w http.ResponseWriter, r *http.Request, c call) {
	var body struct {
		ParentID string `json:"parentId"`
		Name     string `json:"name"`
		Markdown string `json:"markdown"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	page, err := s.service.ImportMarkdown(r.Context(), c.workspaceID, body.ParentID, body.Name, []byte(body.Markdown))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (s *HTTPServer) handleGetPage(w http.ResponseWriter, r *http.Request, c call) {
	detail, err := s.service.GetPage(r.Context(), c.workspaceID, c.param("page"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *HTTPServer) handlePatchPage(w http.ResponseWriter, r *http.Request, c call) {
	var patch PagePatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	page, err := s.service.PatchPage(r.Context(), c.workspaceID, c.param("page"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *HTTPServer) handleDeletePage(w http.ResponseWriter, r *http.Request, c call) {
	removed, err := s.service.DeletePage(r.Context(), c.workspaceID, c.param("page"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *HTTPServer) handleMovePage(w http.ResponseWriter, r *http.Request, c call) {
	var body struct {
		ParentID string `json:"parentId"`
		Index    int    `json:"index"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	page, err := s.service.MovePage(r.Context(), c.workspaceID, c.param("page"), body.ParentID, body.Index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, c call) {
	result, err := s.service.ExportPage(r.Context(), c.workspaceID, c.param("page"), r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	w.Header().Set("Content-Type", result.MimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleRevisions(w http.ResponseWriter, r *http.Request, c call) {
	revs, err := s.service.Revisions(r.Context(), c.workspaceID, c.param("page"), queryInt(r, "limit", 50))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": revs})
}

func (s *HTTPServer) handleRestore(w http.ResponseWriter, r *http.Request, c call) {
	page, err := s.service.RestoreRevision(r.Context(), c.workspaceID, c.param("page"), c.param("hash"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request, c call) {
	undo, redo, err := s.service.HistoryDepth(r.Context(), c.workspaceID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"undo": undo, "redo": redo})
}

func (s *HTTPServer) handleUndo(w http.ResponseWriter, r *http.Request, c call) {
	applied, err := s.service.Undo(r.Context(), c.workspaceID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied})
}

func (s *HTTPServer) handleRedo(w http.ResponseWriter, r *http.Request, c call) {
	applied, err := s.service.Redo(r.Context(), c.workspaceID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied})
}

func (s *HTTPServer) handleShortcut(w http.ResponseWriter, r *http.Request, c call) {
	var body struct {
		Combo string `json:"combo"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	res, err := s.service.HandleShortcut(r.Context(), c.workspaceID, body.Combo)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleSave(w http.ResponseWriter, r *http.Request, c call) {
	if err := s.service.SaveNow(c.workspaceID); err != nil {
		s.logger.Warn().Err(err).Str("workspace", c.workspaceID).Msg("save now")
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": s.service.SaveStatus(c.workspaceID)})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request, c call) {
	writeJSON(w, http.StatusOK, map[string]any{"status": s.service.SaveStatus(c.workspaceID)})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, c call) {
	q := r.URL.Query()
	res, err := s.service.Search(r.Context(), c.workspaceID, q.Get("q"), queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleReindex(w http.ResponseWriter, r *http.Request, c call) {
	n, err := s.service.Reindex(r.Context(), c.workspaceID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"indexed": n})
}

// call is an authorized request scoped to one workspace.
type call struct {
	Identity
	workspaceID string
	role        rbac.Role
	vars        map[string]string
}

func (c call) param(name string) string { return c.vars[name] }

func (s *HTTPServer) authed(next func(http.ResponseWriter, *http.Request, Identity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.requireIdentity(w, r)
		if !ok {
			return
		}
		next(w, r, id)
	}
}

// inWorkspace resolves the caller's role in the {ws} workspace and refuses
// the request unless the role allows action.
func (s *HTTPServer) inWorkspace(action rbac.Action, next func(http.ResponseWriter, *http.Request, call)) http.HandlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request, id Identity) {
		vars := mux.Vars(r)
		role, err := s.service.Authorize(r.Context(), id.UserID, vars["ws"], action)
		if err != nil {
			var domainErr *DomainError
			if errors.As(err, &domainErr) && domainErr.Code == "FORBIDDEN" {
				s.logger.Info().Str("user", id.UserID).Str("workspace", vars["ws"]).Str("action", string(action)).Msg("forbidden")
			}
			s.fail(w, r, err)
			return
		}
		next(w, r, call{Identity: id, workspaceID: vars["ws"], role: role, vars: vars})
	})
}

func (s *HTTPServer) requireIdentity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	token := bearerToken(r)
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Identity{}, false
	}
	id, err := s.service.Identify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Identity{}, false
	}
	return id, true
}

// fail writes the error response and logs unexpected failures.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the status stream upgrade to a websocket.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func nonNilPages(pages []tree.Page) []tree.Page {
	if pages == nil {
		return []tree.Page{}
	}
	return pages
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
