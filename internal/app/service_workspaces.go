package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"inkwell/api/internal/auth"
	"inkwell/api/internal/rbac"
	"inkwell/api/internal/store"
	"inkwell/api/internal/util"
)

const inviteCodeLength = 8

// CreateWorkspace creates a workspace owned by userID. Public workspaces
// get an invite code.
func (s *Service) CreateWorkspace(ctx context.Context, userID, name, kind string) (store.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Workspace{}, errValidation("name is required")
	}
	if kind != store.WorkspacePublic {
		kind = store.WorkspacePrivate
	}
	ws := store.Workspace{
		ID:        util.NewID("ws"),
		Name:      name,
		Kind:      kind,
		OwnerID:   userID,
		CreatedAt: s.now(),
	}
	if kind == store.WorkspacePublic {
		ws.InviteCode = util.NewCode(inviteCodeLength)
	}
	if err := s.store.CreateWorkspace(ctx, ws); err != nil {
		return store.Workspace{}, fmt.Errorf("create workspace: %w", err)
	}
	if err := s.store.AppendUserWorkspace(ctx, userID, ws.ID, string(rbac.RoleOwner)); err != nil {
		return store.Workspace{}, fmt.Errorf("add owner: %w", err)
	}
	ws.Role = string(rbac.RoleOwner)
	return ws, nil
}

// JoinWorkspace adds userID to the public workspace behind code as an editor.
func (s *Service) JoinWorkspace(ctx context.Context, userID, code string) (store.Workspace, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return store.Workspace{}, errInvalidInvite()
	}
	ws, err := s.store.GetWorkspaceByInviteCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return store.Workspace{}, errInvalidInvite()
	}
	if err != nil {
		return store.Workspace{}, fmt.Errorf("lookup invite: %w", err)
	}
	if role, err := s.Role(ctx, userID, ws.ID); err == nil {
		ws.Role = string(role)
		return ws, nil
	}
	if err := s.store.AppendUserWorkspace(ctx, userID, ws.ID, string(rbac.RoleEditor)); err != nil {
		return store.Workspace{}, fmt.Errorf("join workspace: %w", err)
	}
	ws.Role = string(rbac.RoleEditor)
	return ws, nil
}

func (s *Service) ListWorkspaces(ctx context.Context, userID string) ([]store.Workspace, error) {
	list, err := s.store.ListUserWorkspaces(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	if list == nil {
		list = []store.Workspace{}
	}
	return list, nil
}

// Role returns the user's role in a workspace. Non-members get NOT_FOUND so
// the workspace's existence is not revealed.
func (s *Service) Role(ctx context.Context, userID, workspaceID string) (rbac.Role, error) {
	list, err := s.ListWorkspaces(ctx, userID)
	if err != nil {
		return "", err
	}
	for _, ws := range list {
		if ws.ID == workspaceID {
			return rbac.Normalize(ws.Role), nil
		}
	}
	return "", errNotFound("workspace")
}

// Authorize checks that userID may perform action in the workspace.
func (s *Service) Authorize(ctx context.Context, userID, workspaceID string, action rbac.Action) (rbac.Role, error) {
	role, err := s.Role(ctx, userID, workspaceID)
	if err != nil {
		return "", err
	}
	if !rbac.Can(role, action) {
		return role, errForbidden()
	}
	return role, nil
}

// Reindex rebuilds the search index of a workspace from its current pages.
func (s *Service) Reindex(ctx context.Context, workspaceID string) (int, error) {
	pages, err := s.ListPages(ctx, workspaceID)
	if err != nil {
		return 0, err
	}
	s.search.Reindex(ctx, pages)
	return len(pages), nil
}

// Identity is the caller behind a bearer token.
type Identity struct {
	UserID string `json:"userId"`
	Name   string `json:"userName"`
}

// Login issues a token for a display name. The user id is derived from the
// name so the same name always maps to the same user.
func (s *Service) Login(name string) (Identity, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Identity{}, "", errValidation("name is required")
	}
	id := Identity{
		UserID: "usr_" + strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.ToLower(name))).String(), "-", ""),
		Name:   name,
	}
	ttl := s.cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), id.UserID, id.Name, ttl)
	if err != nil {
		return Identity{}, "", err
	}
	return id, token, nil
}

func (s *Service) Identify(token string) (Identity, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.Subject, Name: claims.Name}, nil
}
