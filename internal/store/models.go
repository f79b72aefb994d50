package store

import (
	"context"
	"errors"
	"time"

	"inkwell/api/internal/tree"
)

var ErrNotFound = errors.New("not found")

const (
	WorkspacePrivate = "private"
	WorkspacePublic  = "public"
)

type Workspace struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	OwnerID    string    `json:"ownerId"`
	InviteCode string    `json:"inviteCode,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	// Role is the current user's role; only set by ListUserWorkspaces.
	Role string `json:"role,omitempty"`
}

// DocumentStore is the remote copy of workspaces and their pages.
type DocumentStore interface {
	ListPages(ctx context.Context, workspaceID string) ([]tree.Page, error)
	// UpsertPage writes only the columns named by fields; absent fields keep
	// their stored values.
	UpsertPage(ctx context.Context, page tree.Page, fields tree.Fields) error
	DeletePage(ctx context.Context, workspaceID, pageID string) error
	PageExists(ctx context.Context, workspaceID, pageID string) (bool, error)

	GetWorkspace(ctx context.Context, workspaceID string) (Workspace, error)
	GetWorkspaceByInviteCode(ctx context.Context, code string) (Workspace, error)
	CreateWorkspace(ctx context.Context, ws Workspace) error
	AppendUserWorkspace(ctx context.Context, userID, workspaceID, role string) error
	ListUserWorkspaces(ctx context.Context, userID string) ([]Workspace, error)

	Ping(ctx context.Context) error
}
