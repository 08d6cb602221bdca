package domain

import "strings"

// ChangeNotification is the webhook payload the CMS sends after a publish.
// It carries the raw field-level mutations of one change batch.
type ChangeNotification struct {
	Type       string     `json:"type"`
	DocumentID string     `json:"documentId,omitempty"`
	Mutations  []Mutation `json:"mutations"`
}

// Mutation is one operation in a change batch: either a document creation or
// a patch of an existing document. Exactly one of the fields is set.
type Mutation struct {
	Create map[string]any `json:"create,omitempty"`
	Patch  *MutationPatch `json:"patch,omitempty"`
}

// MutationPatch is a field-level patch: set operations keyed by dotted field
// path, and unset operations as a list of dotted field paths.
type MutationPatch struct {
	ID    string         `json:"id"`
	Set   map[string]any `json:"set,omitempty"`
	Unset []string       `json:"unset,omitempty"`
}

// DocumentID returns the id of the document this mutation targets, or "" when
// it cannot be determined.
func (m Mutation) DocumentID() string {
	if m.Patch != nil {
		return m.Patch.ID
	}
	if m.Create != nil {
		if id, ok := m.Create["_id"].(string); ok {
			return id
		}
	}
	return ""
}

// AffectedDocumentIDs returns the distinct document ids touched by the
// notification, in first-seen order. The top-level DocumentID is included so
// a notification with no recognizable mutations still names its subject.
func (n ChangeNotification) AffectedDocumentIDs() []string {
	var (
		ids  []string
		seen = map[string]bool{}
	)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, m := range n.Mutations {
		add(m.DocumentID())
	}
	add(n.DocumentID)
	return ids
}

// TouchesSlug reports whether any mutation for the given document id sets or
// unsets a field path beginning with slugField (e.g. "slug" matches both
// "slug" and "slug.current"). This is the rename detector's heuristic signal:
// it says the slug was touched, not what its old value was.
func (n ChangeNotification) TouchesSlug(documentID, slugField string) bool {
	for _, m := range n.Mutations {
		if m.DocumentID() != documentID || m.Patch == nil {
			continue
		}
		for path := range m.Patch.Set {
			if pathTouches(path, slugField) {
				return true
			}
		}
		for _, path := range m.Patch.Unset {
			if pathTouches(path, slugField) {
				return true
			}
		}
	}
	return false
}

// pathTouches reports whether a dotted field path is the field itself or a
// descendant of it ("slug.current" touches "slug"; "slugHistory" does not).
func pathTouches(path, field string) bool {
	return path == field || strings.HasPrefix(path, field+".")
}
