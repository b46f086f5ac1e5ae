package entities

// Record is implemented by the CRUD resources so services can assign ids and
// timestamps without knowing the concrete type
type Record interface {
	RecordID() string
	Created() int64
	Stamp(id string, createdAt, updatedAt int64)
}

func (m *Memo) RecordID() string { return m.ID }
func (m *Memo) Created() int64   { return m.CreatedAt }
func (m *Memo) Stamp(id string, createdAt, updatedAt int64) {
	m.ID, m.CreatedAt, m.UpdatedAt = id, createdAt, updatedAt
}

func (b *Bookmark) RecordID() string { return b.ID }
func (b *Bookmark) Created() int64   { return b.CreatedAt }
func (b *Bookmark) Stamp(id string, createdAt, updatedAt int64) {
	b.ID, b.CreatedAt, b.UpdatedAt = id, createdAt, updatedAt
}

func (e *Event) RecordID() string { return e.ID }
func (e *Event) Created() int64   { return e.CreatedAt }
func (e *Event) Stamp(id string, createdAt, updatedAt int64) {
	e.ID, e.CreatedAt, e.UpdatedAt = id, createdAt, updatedAt
}

func (n *Notebook) RecordID() string { return n.ID }
func (n *Notebook) Created() int64   { return n.CreatedAt }
func (n *Notebook) Stamp(id string, createdAt, updatedAt int64) {
	n.ID, n.CreatedAt, n.UpdatedAt = id, createdAt, updatedAt
}

func (i *Identity) RecordID() string { return i.ID }
func (i *Identity) Created() int64   { return i.CreatedAt }
func (i *Identity) Stamp(id string, createdAt, updatedAt int64) {
	i.ID, i.CreatedAt, i.UpdatedAt = id, createdAt, updatedAt
}

func (g *CredentialGroup) RecordID() string { return g.ID }
func (g *CredentialGroup) Created() int64   { return g.CreatedAt }
func (g *CredentialGroup) Stamp(id string, createdAt, updatedAt int64) {
	g.ID, g.CreatedAt, g.UpdatedAt = id, createdAt, updatedAt
}

func (t *ToolboxItem) RecordID() string { return t.ID }
func (t *ToolboxItem) Created() int64   { return t.CreatedAt }
func (t *ToolboxItem) Stamp(id string, createdAt, updatedAt int64) {
	t.ID, t.CreatedAt, t.UpdatedAt = id, createdAt, updatedAt
}
