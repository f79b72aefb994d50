package tree

type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Change is one page-level difference between two snapshots.
type Change struct {
	Op     Op
	PageID string
	Fields Fields
	// Page is the new state; zero for deletions.
	Page Page
}

// Structural reports whether the change must be persisted promptly.
func (c Change) Structural() bool {
	return c.Op != OpUpdated || !c.Fields.IsContent()
}

// Diff lists the page changes that turn old into next: updates and creations
// in next's order, then deletions in old's order.
func Diff(old, next Forest) []Change {
	var changes []Change
	for _, id := range next.order {
		np := next.pages[id]
		op, ok := old.pages[id]
		if !ok {
			changes = append(changes, Change{Op: OpCreated, PageID: id, Fields: FieldsAll, Page: np})
			continue
		}
		if fields := Changed(op, np); fields != 0 {
			changes = append(changes, Change{Op: OpUpdated, PageID: id, Fields: fields, Page: np})
		}
	}
	for _, id := range old.order {
		if _, ok := next.pages[id]; !ok {
			changes = append(changes, Change{Op: OpDeleted, PageID: id})
		}
	}
	return changes
}

// IsStructural reports whether any change in the set is structural.
func IsStructural(changes []Change) bool {
	for _, c := range changes {
		if c.Structural() {
			return true
		}
	}
	return false
}
