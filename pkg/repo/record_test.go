package repo_test

import (
	"testing"

	"github.com/mylxsw/festival-server/pkg/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJSON(t *testing.T) {
	v, err := repo.EncodeJSON(nil)
	require.NoError(t, err)
	assert.False(t, v.Valid)

	v, err = repo.EncodeJSON(map[string]any{"oss_key": "generated-images/default/a.webp", "compression_ratio": 12.5})
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.JSONEq(t, `{"oss_key":"generated-images/default/a.webp","compression_ratio":12.5}`, v.String)

	_, err = repo.EncodeJSON(func() {})
	assert.Error(t, err)
}
