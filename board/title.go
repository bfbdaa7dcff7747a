package board

import "strings"

// ColumnTitle is a column heading seeded from an authoritative value and edited locally.
// An edit in progress survives authoritative refreshes until it is committed or cancelled.
type ColumnTitle struct {
	authoritative string
	localEdit     *string
}

func NewColumnTitle(authoritative string) *ColumnTitle {
	return &ColumnTitle{authoritative: authoritative}
}

// Display returns the committed title.
func (t *ColumnTitle) Display() string { return t.authoritative }

// Draft returns the uncommitted edit, if any.
func (t *ColumnTitle) Draft() (string, bool) {
	if t.localEdit == nil {
		return "", false
	}
	return *t.localEdit, true
}

// Begin starts editing from the committed title. It is a no-op while already editing.
func (t *ColumnTitle) Begin() {
	if t.localEdit != nil {
		return
	}
	draft := t.authoritative
	t.localEdit = &draft
}

// SetDraft replaces the edit buffer, starting an edit if needed.
func (t *ColumnTitle) SetDraft(v string) {
	t.localEdit = &v
}

// Commit makes the draft authoritative. Blank drafts are discarded. It reports whether the
// committed title changed.
func (t *ColumnTitle) Commit() bool {
	if t.localEdit == nil {
		return false
	}
	draft := strings.TrimSpace(*t.localEdit)
	t.localEdit = nil
	if draft == "" || draft == t.authoritative {
		return false
	}
	t.authoritative = draft
	return true
}

// Cancel drops the draft.
func (t *ColumnTitle) Cancel() { t.localEdit = nil }

// Refresh replaces the authoritative value without touching an edit in progress.
func (t *ColumnTitle) Refresh(v string) { t.authoritative = v }

// TitleView is the rendering snapshot of a column title.
type TitleView struct {
	Title   string `json:"title"`
	Editing bool   `json:"editing"`
	Draft   string `json:"draft,omitempty"`
}

func (t *ColumnTitle) View() TitleView {
	draft, editing := t.Draft()
	return TitleView{Title: t.authoritative, Editing: editing, Draft: draft}
}
