package controllers_test

import (
	"encoding/json"
	"testing"

	"github.com/mylxsw/festival-server/api/controllers"
	"github.com/mylxsw/festival-server/pkg/imgutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBatchRequest_Options(t *testing.T) {
	var req controllers.ProcessBatchRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"urls": ["https://img.test/a.png", "https://img.test/b.png"],
		"project_id": "lantern",
		"quality": 70,
		"concurrency": 2,
		"size": "800x600",
		"fit": "contain"
	}`), &req))

	opt := req.Options()
	assert.Equal(t, "lantern", opt.ProjectID)
	assert.Equal(t, 70, opt.Quality)
	assert.Equal(t, 2, opt.Concurrency)
	require.NotNil(t, opt.Resize)
	assert.Equal(t, imgutil.Resize{Width: 800, Height: 600, Fit: imgutil.FitContain}, *opt.Resize)
}

func TestProcessBatchRequest_OptionsWithoutResize(t *testing.T) {
	for _, size := range []string{"", "abcxdef", "60000x60000"} {
		req := controllers.ProcessBatchRequest{URLs: []string{"https://img.test/a.png"}, Size: size}
		assert.Nil(t, req.Options().Resize, size)
	}
}
