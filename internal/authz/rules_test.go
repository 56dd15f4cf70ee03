package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard-service/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func TestAdminLevelOf(t *testing.T) {
	assert.Equal(t, AdminUnset, AdminLevelOf(nil))
	assert.Equal(t, AdminGranted, AdminLevelOf(boolPtr(true)))
	assert.Equal(t, AdminDenied, AdminLevelOf(boolPtr(false)))
}

func TestAuthorize_MemberActions(t *testing.T) {
	member := &model.Membership{UserID: 1, TenantID: 1}

	actions := []Action{
		ActionViewTasks,
		ActionViewResources,
		ActionViewPrompts,
		ActionCreateTask,
		ActionCreateResource,
		ActionCreatePrompt,
		ActionCreateCategory,
	}
	for _, action := range actions {
		assert.NoError(t, Authorize(member, action))
	}

	assert.ErrorIs(t, Authorize(nil, ActionViewTasks), ErrNotAMember)
}

func TestAuthorize_CategoryMutation(t *testing.T) {
	tests := []struct {
		name       string
		membership *model.Membership
		wantErr    error
	}{
		{
			name:       "owner always allowed",
			membership: &model.Membership{IsOwner: true, IsAdmin: boolPtr(false)},
		},
		{
			name:       "unset admin flag allowed",
			membership: &model.Membership{IsAdmin: nil},
		},
		{
			name:       "granted admin flag allowed",
			membership: &model.Membership{IsAdmin: boolPtr(true)},
		},
		{
			name:       "revoked admin flag denied",
			membership: &model.Membership{IsAdmin: boolPtr(false)},
			wantErr:    ErrAdminRevoked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, action := range []Action{ActionEditCategory, ActionDeleteCategory} {
				err := Authorize(tt.membership, action)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.NoError(t, err)
				}
			}
		})
	}
}

func TestAuthorize_UpdateMemberRole(t *testing.T) {
	admin := boolPtr(true)
	assert.ErrorIs(t, Authorize(&model.Membership{IsAdmin: admin}, ActionUpdateMemberRole), ErrOwnerRequired)
	assert.NoError(t, Authorize(&model.Membership{IsOwner: true}, ActionUpdateMemberRole))
}

func TestAuthorize_UnknownActionFailsClosed(t *testing.T) {
	owner := &model.Membership{IsOwner: true}
	assert.ErrorIs(t, Authorize(owner, Action(999)), ErrUnknownAction)
}

func TestRequireCreator(t *testing.T) {
	assert.NoError(t, RequireCreator(7, 7))
	assert.ErrorIs(t, RequireCreator(7, 8), ErrCreatorOnly)
}

func TestRequireGlobalAdmin(t *testing.T) {
	assert.NoError(t, RequireGlobalAdmin(Caller{ID: 1, IsAdmin: true}))
	assert.ErrorIs(t, RequireGlobalAdmin(Caller{ID: 1}), ErrGlobalAdminRequired)
}

func TestCanDeleteTenant(t *testing.T) {
	tenant := &model.Tenant{Name: "Acme Corp", PIN: "4821"}
	owner := &model.Membership{IsOwner: true}

	tests := []struct {
		name        string
		membership  *model.Membership
		confirmName string
		confirmPIN  string
		ownedCount  int64
		wantErr     error
	}{
		{
			name:        "owner with correct confirmation and a second tenant",
			membership:  owner,
			confirmName: "Acme Corp",
			confirmPIN:  "4821",
			ownedCount:  2,
		},
		{
			name:        "non-owner rejected",
			membership:  &model.Membership{IsAdmin: boolPtr(true)},
			confirmName: "Acme Corp",
			confirmPIN:  "4821",
			ownedCount:  2,
			wantErr:     ErrOwnerRequired,
		},
		{
			name:        "nil membership rejected",
			membership:  nil,
			confirmName: "Acme Corp",
			confirmPIN:  "4821",
			ownedCount:  2,
			wantErr:     ErrOwnerRequired,
		},
		{
			name:        "name is case sensitive",
			membership:  owner,
			confirmName: "acme corp",
			confirmPIN:  "4821",
			ownedCount:  2,
			wantErr:     ErrNameMismatch,
		},
		{
			name:        "wrong PIN",
			membership:  owner,
			confirmName: "Acme Corp",
			confirmPIN:  "0000",
			ownedCount:  2,
			wantErr:     ErrPINMismatch,
		},
		{
			name:        "only tenant cannot be deleted even with correct confirmation",
			membership:  owner,
			confirmName: "Acme Corp",
			confirmPIN:  "4821",
			ownedCount:  1,
			wantErr:     ErrLastTenant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanDeleteTenant(tt.membership, tenant, tt.confirmName, tt.confirmPIN, tt.ownedCount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckDeletePIN(t *testing.T) {
	assert.NoError(t, CheckDeletePIN("1234", "1234"))
	assert.ErrorIs(t, CheckDeletePIN("1111", "1234"), ErrPINMismatch)
	assert.ErrorIs(t, CheckDeletePIN("", "1234"), ErrPINMismatch)
}

func TestVisibleTasks(t *testing.T) {
	tasks := []model.Task{
		{Title: "Quarterly review", Assignee: "alice@example.com"},
		{Title: "Launch checklist", Assignee: "bob@example.com"},
		{Title: "Unassigned cleanup", Assignee: ""},
	}

	t.Run("empty grant list shows everything", func(t *testing.T) {
		visible := VisibleTasks(tasks, nil, false)
		require.Len(t, visible, 3)
	})

	t.Run("grants restrict to matching assignees", func(t *testing.T) {
		visible := VisibleTasks(tasks, []string{"alice@example.com"}, false)
		require.Len(t, visible, 1)
		assert.Equal(t, "Quarterly review", visible[0].Title)
	})

	t.Run("global admin is never restricted", func(t *testing.T) {
		visible := VisibleTasks(tasks, []string{"alice@example.com"}, true)
		require.Len(t, visible, 3)
	})

	t.Run("grants that match nothing hide everything", func(t *testing.T) {
		visible := VisibleTasks(tasks, []string{"nobody@example.com"}, false)
		assert.Empty(t, visible)
	})
}
