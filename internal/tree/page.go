// Package tree models a workspace's pages as a copy-on-write forest.
package tree

import (
	"slices"
	"strings"
	"time"

	"inkwell/api/internal/block"
	"inkwell/api/internal/util"
)

type Kind string

const (
	KindPage   Kind = "page"
	KindFolder Kind = "folder"
)

const Untitled = "Untitled"

// Page is a node in the forest. Slices held by a Page are never modified in
// place; every change installs a fresh slice so old snapshots stay valid.
type Page struct {
	ID           string        `json:"id"`
	WorkspaceID  string        `json:"workspaceId"`
	Kind         Kind          `json:"kind"`
	Title        string        `json:"title"`
	Icon         string        `json:"icon,omitempty"`
	CoverImage   string        `json:"coverImage,omitempty"`
	Blocks       []block.Block `json:"blocks"`
	ParentID     string        `json:"parentId,omitempty"`
	ChildIDs     []string      `json:"childIds"`
	IsFavorite   bool          `json:"isFavorite"`
	IsExpanded   bool          `json:"isExpanded"`
	LastOpenedAt time.Time     `json:"lastOpenedAt,omitzero"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func NewPageID() string {
	return util.NewID("pg")
}

// NewPage returns an empty page with a title block and one text block.
func NewPage(workspaceID, parentID string, kind Kind, now time.Time) Page {
	if kind != KindFolder {
		kind = KindPage
	}
	return Page{
		ID:          NewPageID(),
		WorkspaceID: workspaceID,
		Kind:        kind,
		Title:       Untitled,
		Blocks:      []block.Block{block.New(block.KindHeading1), block.New(block.KindText)},
		ParentID:    parentID,
		ChildIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DeriveTitle returns the plain text of a leading Heading1, or Untitled.
func DeriveTitle(blocks []block.Block) string {
	if len(blocks) == 0 || blocks[0].Kind != block.KindHeading1 {
		return Untitled
	}
	title := strings.TrimSpace(block.PlainText(blocks[0].Content))
	if title == "" {
		return Untitled
	}
	return title
}

// PlainText is the searchable text of the page body.
func (p Page) PlainText() string {
	return block.PlainDocument(p.Blocks)
}

func (p Page) IsRoot() bool { return p.ParentID == "" }

// Fields names the page attributes a write carries.
type Fields uint16

const (
	FieldTitle Fields = 1 << iota
	FieldIcon
	FieldCover
	FieldBlocks
	FieldParent
	FieldChildren
	FieldFavorite
	FieldExpanded
	FieldLastOpened
	FieldKind
	FieldCreatedAt
	FieldUpdatedAt
)

const (
	FieldsAll     = FieldUpdatedAt<<1 - 1
	ContentFields = FieldTitle | FieldBlocks | FieldUpdatedAt
)

var fieldNames = []struct {
	field Fields
	name  string
}{
	{FieldTitle, "title"},
	{FieldIcon, "icon"},
	{FieldCover, "coverImage"},
	{FieldBlocks, "blocks"},
	{FieldParent, "parentId"},
	{FieldChildren, "childIds"},
	{FieldFavorite, "isFavorite"},
	{FieldExpanded, "isExpanded"},
	{FieldLastOpened, "lastOpenedAt"},
	{FieldKind, "kind"},
	{FieldCreatedAt, "createdAt"},
	{FieldUpdatedAt, "updatedAt"},
}

func (f Fields) Has(other Fields) bool { return f&other == other }

// IsContent reports whether a write only touches page content, which is
// persisted on the slow debounce.
func (f Fields) IsContent() bool {
	return f != 0 && f&^ContentFields == 0
}

// Names lists the JSON names of the set fields in a stable order.
func (f Fields) Names() []string {
	var out []string
	for _, fn := range fieldNames {
		if f.Has(fn.field) {
			out = append(out, fn.name)
		}
	}
	return out
}

// Changed returns the fields that differ between a and b.
func Changed(a, b Page) Fields {
	var f Fields
	if a.Title != b.Title {
		f |= FieldTitle
	}
	if a.Icon != b.Icon {
		f |= FieldIcon
	}
	if a.CoverImage != b.CoverImage {
		f |= FieldCover
	}
	if !sameBlocks(a.Blocks, b.Blocks) {
		f |= FieldBlocks
	}
	if a.ParentID != b.ParentID {
		f |= FieldParent
	}
	if !slices.Equal(a.ChildIDs, b.ChildIDs) {
		f |= FieldChildren
	}
	if a.IsFavorite != b.IsFavorite {
		f |= FieldFavorite
	}
	if a.IsExpanded != b.IsExpanded {
		f |= FieldExpanded
	}
	if !a.LastOpenedAt.Equal(b.LastOpenedAt) {
		f |= FieldLastOpened
	}
	if a.Kind != b.Kind {
		f |= FieldKind
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		f |= FieldCreatedAt
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		f |= FieldUpdatedAt
	}
	return f
}

func sameBlocks(a, b []block.Block) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 || &a[0] == &b[0] {
		return true
	}
	return slices.Equal(a, b)
}

// ApplyFields copies the fields named by f from src onto dst.
func ApplyFields(dst, src Page, f Fields) Page {
	if f.Has(FieldTitle) {
		dst.Title = src.Title
	}
	if f.Has(FieldIcon) {
		dst.Icon = src.Icon
	}
	if f.Has(FieldCover) {
		dst.CoverImage = src.CoverImage
	}
	if f.Has(FieldBlocks) {
		dst.Blocks = src.Blocks
	}
	if f.Has(FieldParent) {
		dst.ParentID = src.ParentID
	}
	if f.Has(FieldChildren) {
		dst.ChildIDs = src.ChildIDs
	}
	if f.Has(FieldFavorite) {
		dst.IsFavorite = src.IsFavorite
	}
	if f.Has(FieldExpanded) {
		dst.IsExpanded = src.IsExpanded
	}
	if f.Has(FieldLastOpened) {
		dst.LastOpenedAt = src.LastOpenedAt
	}
	if f.Has(FieldKind) {
		dst.Kind = src.Kind
	}
	if f.Has(FieldCreatedAt) {
		dst.CreatedAt = src.CreatedAt
	}
	if f.Has(FieldUpdatedAt) {
		dst.UpdatedAt = src.UpdatedAt
	}
	return dst
}
