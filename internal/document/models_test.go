package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCapability_OwnerWins(t *testing.T) {
	d := New("d1", "u1", "")
	// owner stays owner regardless of lists or privacy mode
	d.PrivacyMode = PrivacyPrivate
	require.Equal(t, CapabilityOwner, d.ResolveCapability("u1"))
	d.PrivacyMode = PrivacyEdit
	require.Equal(t, CapabilityOwner, d.ResolveCapability("u1"))
}

func TestResolveCapability_ListsAndPrivacyMode(t *testing.T) {
	d := New("d1", "u1", "")
	d.Editors = []string{"u2"}
	d.Viewers = []string{"u3"}

	require.Equal(t, CapabilityEdit, d.ResolveCapability("u2"))
	require.Equal(t, CapabilityView, d.ResolveCapability("u3"))
	require.Equal(t, CapabilityDenied, d.ResolveCapability("u4"))

	d.PrivacyMode = PrivacyView
	require.Equal(t, CapabilityView, d.ResolveCapability("u4"))
	// explicit editor grant beats the view-mode default
	require.Equal(t, CapabilityEdit, d.ResolveCapability("u2"))

	d.PrivacyMode = PrivacyEdit
	require.Equal(t, CapabilityEdit, d.ResolveCapability("u4"))
}

func TestGrantEditor_ClearsPendingAndViewer(t *testing.T) {
	d := New("d1", "u1", "")
	d.Viewers = []string{"u2"}
	d.PendingRequests = []string{"u2"}

	d.GrantEditor("u2")
	require.Equal(t, []string{"u2"}, d.Editors)
	require.Empty(t, d.Viewers)
	require.Empty(t, d.PendingRequests)

	// idempotent
	d.GrantEditor("u2")
	require.Equal(t, []string{"u2"}, d.Editors)
}

func TestGrantEditor_NeverAddsOwner(t *testing.T) {
	d := New("d1", "u1", "")
	d.GrantEditor("u1")
	require.Empty(t, d.Editors)
}

func TestGrantViewer_KeepsEditorGrant(t *testing.T) {
	d := New("d1", "u1", "")
	d.Editors = []string{"u2"}
	d.PendingRequests = []string{"u2"}

	d.GrantViewer("u2")
	// viewer grant does not demote an editor; the pending request is cleared
	require.Equal(t, []string{"u2"}, d.Editors)
	require.Equal(t, []string{"u2"}, d.Viewers)
	require.Empty(t, d.PendingRequests)
	require.Equal(t, CapabilityEdit, d.ResolveCapability("u2"))
}

func TestAddRequest_Idempotent(t *testing.T) {
	d := New("d1", "u1", "")

	require.True(t, d.AddRequest("u3"))
	require.False(t, d.AddRequest("u3"))
	require.Equal(t, []string{"u3"}, d.PendingRequests)
}

func TestAddRequest_SkipsOwnerAndGrantees(t *testing.T) {
	d := New("d1", "u1", "")
	d.Editors = []string{"u2"}
	d.Viewers = []string{"u3"}

	require.False(t, d.AddRequest("u1"))
	require.False(t, d.AddRequest("u2"))
	require.False(t, d.AddRequest("u3"))
	require.Empty(t, d.PendingRequests)
}

func TestNew_Defaults(t *testing.T) {
	d := New("d1", "u1", "")
	require.Equal(t, DefaultTitle, d.Title)
	require.Equal(t, PrivacyPrivate, d.PrivacyMode)
	require.Empty(t, d.Content)

	d2 := New("d2", "u1", "Notes")
	require.Equal(t, "Notes", d2.Title)
}

func TestPrivacyModeValid(t *testing.T) {
	require.True(t, PrivacyPrivate.Valid())
	require.True(t, PrivacyView.Valid())
	require.True(t, PrivacyEdit.Valid())
	require.False(t, PrivacyMode("public").Valid())
	require.False(t, PrivacyMode("").Valid())
}
