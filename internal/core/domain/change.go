package domain

// ChangeType classifies a change reported by a watched document source.
type ChangeType int

const (
	// ChangeCreated indicates a new document appeared.
	ChangeCreated ChangeType = iota + 1

	// ChangeUpdated indicates an existing document's content changed.
	ChangeUpdated

	// ChangeDeleted indicates a document was removed or renamed away.
	ChangeDeleted
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// DocumentChange is a single change from a watched source.
// Document is nil for deletions.
type DocumentChange struct {
	Type     ChangeType
	URI      string
	Document *RawDocument
}
