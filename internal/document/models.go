package document

import (
	"encoding/json"
	"time"
)

// DefaultTitle is used when a document is created without an explicit title.
const DefaultTitle = "Untitled Document"

// PrivacyMode is the default capability granted to authenticated users that
// are neither the owner nor explicitly listed as viewer/editor.
type PrivacyMode string

const (
	PrivacyPrivate PrivacyMode = "private"
	PrivacyView    PrivacyMode = "view"
	PrivacyEdit    PrivacyMode = "edit"
)

// Valid reports whether m is one of the accepted privacy modes.
func (m PrivacyMode) Valid() bool {
	switch m {
	case PrivacyPrivate, PrivacyView, PrivacyEdit:
		return true
	}
	return false
}

// Capability is the access level resolved for a user against a document.
type Capability string

const (
	CapabilityOwner  Capability = "owner"
	CapabilityEdit   Capability = "edit"
	CapabilityView   Capability = "view"
	CapabilityDenied Capability = "denied"
)

// CanEdit reports whether the capability allows mutating document content.
func (c Capability) CanEdit() bool { return c == CapabilityOwner || c == CapabilityEdit }

// CanView reports whether the capability allows reading document content.
func (c Capability) CanView() bool { return c.CanEdit() || c == CapabilityView }

// Document is the persistent unit of collaboration. Content is an opaque
// payload owned by the client editor; this service never inspects it.
type Document struct {
	ID              string          `json:"id" bson:"_id"`
	Title           string          `json:"title" bson:"title"`
	Content         json.RawMessage `json:"content,omitempty" bson:"content,omitempty"`
	OwnerID         string          `json:"ownerId" bson:"ownerId"`
	PrivacyMode     PrivacyMode     `json:"privacyMode" bson:"privacyMode"`
	Viewers         []string        `json:"viewers" bson:"viewers"`
	Editors         []string        `json:"editors" bson:"editors"`
	PendingRequests []string        `json:"pendingRequests" bson:"pendingRequests"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// New returns a fresh private document owned by ownerID. An empty title
// falls back to DefaultTitle.
func New(id, ownerID, title string) *Document {
	if title == "" {
		title = DefaultTitle
	}
	return &Document{
		ID:              id,
		Title:           title,
		OwnerID:         ownerID,
		PrivacyMode:     PrivacyPrivate,
		Viewers:         []string{},
		Editors:         []string{},
		PendingRequests: []string{},
	}
}

// ResolveCapability computes the capability of userID for this document.
// Ownership wins over everything; explicit editor/viewer grants win over the
// privacy mode; the privacy mode covers everyone else.
func (d *Document) ResolveCapability(userID string) Capability {
	if userID == d.OwnerID {
		return CapabilityOwner
	}
	if contains(d.Editors, userID) || d.PrivacyMode == PrivacyEdit {
		return CapabilityEdit
	}
	if contains(d.Viewers, userID) || d.PrivacyMode == PrivacyView {
		return CapabilityView
	}
	return CapabilityDenied
}

// GrantEditor promotes userID to editor, clearing any pending request and any
// viewer grant. Idempotent; the owner is never added to the lists.
func (d *Document) GrantEditor(userID string) {
	if userID == d.OwnerID {
		return
	}
	d.PendingRequests = remove(d.PendingRequests, userID)
	d.Viewers = remove(d.Viewers, userID)
	if !contains(d.Editors, userID) {
		d.Editors = append(d.Editors, userID)
	}
}

// GrantViewer adds userID as viewer, clearing any pending request. An
// existing editor grant is left untouched, so a user present in both lists
// still resolves to edit capability.
func (d *Document) GrantViewer(userID string) {
	if userID == d.OwnerID {
		return
	}
	d.PendingRequests = remove(d.PendingRequests, userID)
	if !contains(d.Viewers, userID) {
		d.Viewers = append(d.Viewers, userID)
	}
}

// AddRequest records an access request for userID and reports whether the
// pending set changed. Requests from the owner, from existing grantees and
// duplicate requests are no-ops.
func (d *Document) AddRequest(userID string) bool {
	if userID == d.OwnerID || contains(d.Editors, userID) || contains(d.Viewers, userID) {
		return false
	}
	if contains(d.PendingRequests, userID) {
		return false
	}
	d.PendingRequests = append(d.PendingRequests, userID)
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
