package app

import (
	"net/http"

	"inkwell/api/internal/block"
	"inkwell/api/internal/editor"
	"inkwell/api/internal/media"
	"inkwell/api/internal/rbac"
)

const maxUploadMemory = 8 << 20

// editorAction is the body of every editor call. Each action reads the
// fields it needs.
type editorAction struct {
	editor.KeyEvent
	Content  string      `json:"content"`
	Index    int         `json:"index"`
	Kind     block.Kind  `json:"kind"`
	Language string      `json:"language"`
	URL      string      `json:"url"`
	Caption  string      `json:"caption"`
	Filter   string      `json:"filter"`
	Rect     editor.Rect `json:"rect"`
}

func (s *HTTPServer) handleOpenEditor(w http.ResponseWriter, r *http.Request, c call) {
	sess, err := s.service.OpenEditor(r.Context(), c.workspaceID, c.param("page"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":     sess.Render(),
		"readOnly": !rbac.Can(c.role, rbac.ActionWrite),
	})
}

func (s *HTTPServer) handleEditorAction(w http.ResponseWriter, r *http.Request, c call) {
	var body editorAction
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess, err := s.service.OpenEditor(r.Context(), c.workspaceID, c.param("page"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	handled := true
	switch action := c.param("action"); action {
	case "key":
		handled = sess.HandleKey(r.Context(), body.KeyEvent)
	case "input":
		sess.Input(body.BlockID, body.Content, body.Caret)
	case "insert":
		if body.Kind == "" {
			body.Kind = block.KindText
		}
		sess.InsertAfter(body.Index, body.Kind)
	case "duplicate":
		sess.Duplicate(body.BlockID)
	case "kind":
		if !body.Kind.Valid() {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown block kind", map[string]any{"kind": body.Kind})
			return
		}
		sess.SetKind(body.BlockID, body.Kind)
	case "check":
		sess.ToggleChecked(body.BlockID)
	case "toggle":
		sess.ToggleOpen(body.BlockID)
	case "language":
		sess.SetCodeLanguage(body.BlockID, body.Language)
	case "media":
		sess.SetMedia(body.BlockID, body.URL, body.Caption)
	case "delete":
		sess.Delete(body.BlockID)
	case "move":
		sess.Move(body.BlockID, body.Index)
	case "collapse":
		if err := sess.ToggleCollapse(r.Context(), body.BlockID); err != nil {
			s.logger.Warn().Err(err).Str("workspace", c.workspaceID).Str("page", c.param("page")).Msg("save collapsed headings")
		}
	case "select":
		sess.Select(body.BlockID, body.Rect)
	case "deselect":
		sess.ClearSelection()
	case "dismiss-warning":
		sess.DismissWarning()
	case "menu":
		handled = sess.OpenMenu(body.BlockID, body.X, body.Y)
	case "menu-filter":
		sess.SetMenuFilter(body.Filter)
	case "menu-close":
		sess.CloseMenus()
	case "choose-command":
		sess.ChooseCommand(body.Index)
	case "choose-page":
		sess.ChoosePage(body.Index)
	default:
		writeError(w, http.StatusNotFound, "UNKNOWN_ACTION", "Unknown editor action", map[string]any{"action": action})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"handled": handled, "view": sess.Render()})
}

func (s *HTTPServer) handleUploadMedia(w http.ResponseWriter, r *http.Request, c call) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected multipart form with a file field", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected multipart form with a file field", nil)
		return
	}
	defer file.Close()

	obj, err := s.service.UploadMedia(r.Context(), c.workspaceID, c.param("page"), c.param("block"), media.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}
