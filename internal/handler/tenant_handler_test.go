package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawFields(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	return fields
}

func TestRoleUpdates(t *testing.T) {
	t.Run("omitted is_admin is not written", func(t *testing.T) {
		updates, err := roleUpdates(rawFields(t, `{"is_owner": false}`))
		require.NoError(t, err)

		_, present := updates["is_admin"]
		assert.False(t, present, "an ownership-only update must not touch the admin flag")
		assert.Equal(t, false, updates["is_owner"])
	})

	t.Run("explicit null clears the admin flag", func(t *testing.T) {
		updates, err := roleUpdates(rawFields(t, `{"is_admin": null}`))
		require.NoError(t, err)

		raw, present := updates["is_admin"]
		require.True(t, present)
		assert.Nil(t, raw.(*bool))
	})

	t.Run("explicit false is preserved as false", func(t *testing.T) {
		updates, err := roleUpdates(rawFields(t, `{"is_admin": false}`))
		require.NoError(t, err)

		flag := updates["is_admin"].(*bool)
		require.NotNil(t, flag)
		assert.False(t, *flag)
	})

	t.Run("both fields supplied", func(t *testing.T) {
		updates, err := roleUpdates(rawFields(t, `{"is_admin": true, "is_owner": true}`))
		require.NoError(t, err)
		require.Len(t, updates, 2)

		flag := updates["is_admin"].(*bool)
		require.NotNil(t, flag)
		assert.True(t, *flag)
		assert.Equal(t, true, updates["is_owner"])
	})

	t.Run("empty body yields no updates", func(t *testing.T) {
		updates, err := roleUpdates(rawFields(t, `{}`))
		require.NoError(t, err)
		assert.Empty(t, updates)
	})

	t.Run("malformed value", func(t *testing.T) {
		_, err := roleUpdates(rawFields(t, `{"is_admin": "yes"}`))
		assert.Error(t, err)
	})
}
