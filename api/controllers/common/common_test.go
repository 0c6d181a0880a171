package common_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/mylxsw/festival-server/api/controllers/common"
	"github.com/mylxsw/festival-server/pkg/ai/seedream"
	"github.com/mylxsw/festival-server/pkg/creative"
	"github.com/mylxsw/festival-server/pkg/rate"
	"github.com/mylxsw/festival-server/pkg/repo"
	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&creative.ValidationError{Field: "prompt", Message: "prompt is required"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", &creative.ValidationError{Field: "seed"}), http.StatusBadRequest},
		{rate.ErrRateLimitExceeded, http.StatusTooManyRequests},
		{repo.ErrNotFound, http.StatusNotFound},
		{&seedream.ProviderError{StatusCode: 429, Message: "busy"}, http.StatusBadGateway},
		{creative.ErrNoImageGenerated, http.StatusBadGateway},
		{creative.ErrAllImagesFailed, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		assert.Equal(t, c.code, common.StatusCode(c.err), "error %v", c.err)
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "invalid prompt: prompt is required", common.Message(&creative.ValidationError{Field: "prompt", Message: "prompt is required"}))
	assert.Equal(t, common.ErrAllFailed, common.Message(creative.ErrAllImagesFailed))
	assert.Equal(t, common.ErrProviderFailed, common.Message(&seedream.ProviderError{StatusCode: 500}))
	assert.Equal(t, common.ErrNotFound, common.Message(repo.ErrNotFound))
	assert.Equal(t, common.ErrInternalError, common.Message(errors.New("dial tcp: connection refused")))
}
