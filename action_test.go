package rbac

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	for _, a := range Actions() {
		parsed, err := ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}

	a, err := ParseAction("  Edit_Own ")
	require.NoError(t, err)
	assert.Equal(t, ActionEditOwn, a)

	_, err = ParseAction("approve")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ParseAction("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAction_Column(t *testing.T) {
	assert.Len(t, Actions(), 11)
	assert.Equal(t, "can_view_all", ActionViewAll.Column())
	assert.Equal(t, "can_delete_assigned", ActionDeleteAssigned.Column())
	assert.False(t, Action(11).Valid())
	assert.False(t, Action(-1).Valid())
}

func TestAction_JSON(t *testing.T) {
	b, err := json.Marshal(Grant{Resource: "employees", Action: ActionExport})
	require.NoError(t, err)
	assert.JSONEq(t, `{"resource":"employees","action":"export"}`, string(b))

	var g Grant
	require.NoError(t, json.Unmarshal([]byte(`{"resource":"crm_leads","action":"view_own"}`), &g))
	assert.Equal(t, Grant{Resource: "crm_leads", Action: ActionViewOwn}, g)

	assert.Error(t, json.Unmarshal([]byte(`{"resource":"x","action":"fly"}`), &g))
}

func TestActionSet(t *testing.T) {
	var a, b ActionSet
	a[ActionViewAll] = true
	b[ActionEditOwn] = true

	u := a.Union(b)
	assert.True(t, u.Has(ActionViewAll))
	assert.True(t, u.Has(ActionEditOwn))
	assert.False(t, u.Has(ActionExport))
	assert.False(t, a.Has(ActionEditOwn), "union must not mutate its receiver")
	assert.Equal(t, []Action{ActionViewAll, ActionEditOwn}, u.List())
	assert.False(t, u.Has(Action(42)))
}

func TestRolePermission_SetAndActions(t *testing.T) {
	var rp RolePermission
	for _, a := range Actions() {
		rp.Set(a, true)
		assert.True(t, rp.Actions().Has(a), a.String())
		rp.Set(a, false)
		assert.Empty(t, rp.Actions().List(), a.String())
	}
	rp.Set(Action(99), true)
	assert.Empty(t, rp.Actions().List())
}
