package seedream_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mylxsw/festival-server/pkg/ai/seedream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRequest_MarshalJSON(t *testing.T) {
	seed := int64(42)
	data, err := json.Marshal(seedream.ImageRequest{
		Model:                     "doubao-seedream-4-0-250828",
		Prompt:                    "秋山红叶",
		Images:                    []string{"https://example.com/a.jpg"},
		Size:                      "2K",
		NumImages:                 2,
		SequentialImageGeneration: seedream.SequentialAuto,
		Seed:                      &seed,
	})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))

	assert.Equal(t, "https://example.com/a.jpg", body["image"])
	assert.Equal(t, "2K", body["size"])
	assert.EqualValues(t, 2, body["num_images"])
	assert.Equal(t, "auto", body["sequential_image_generation"])
	assert.Equal(t, false, body["stream"])
	assert.EqualValues(t, 42, body["seed"])
	assert.NotContains(t, body, "negative_prompt")

	data, err = json.Marshal(seedream.ImageRequest{Prompt: "p", Images: []string{"a", "b"}})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, []any{"a", "b"}, body["image"])

	data, err = json.Marshal(seedream.ImageRequest{Prompt: "p"})
	require.NoError(t, err)
	body = map[string]any{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.NotContains(t, body, "image")
}

func TestSeedream_GenerateImage(t *testing.T) {
	var received map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/images/generations", r.URL.Path)
		auth = r.Header.Get("Authorization")

		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &received)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"m","created":1,"data":[{"url":"https://img/1.jpeg","size":"2048x2048"},{"url":""},{"url":"https://img/2.jpeg"}]}`))
	}))
	defer srv.Close()

	client := seedream.New(srv.URL+"/api/v3/", "secret", "doubao-seedream", 5*time.Second)
	resp, err := client.GenerateImage(context.TODO(), seedream.ImageRequest{Prompt: "秋山红叶", NumImages: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://img/1.jpeg", "https://img/2.jpeg"}, resp.URLs())
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "doubao-seedream", received["model"])
	assert.Equal(t, "url", received["response_format"])
}

func TestSeedream_GenerateImageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"InputTextSensitiveContentDetected","message":"sensitive content"}}`))
	}))
	defer srv.Close()

	_, err := seedream.New(srv.URL, "k", "m", time.Second).GenerateImage(context.TODO(), seedream.ImageRequest{Prompt: "x"})

	var pe *seedream.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
	assert.Equal(t, "InputTextSensitiveContentDetected", pe.Code)
	assert.Equal(t, "sensitive content", pe.Message)

	raw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer raw.Close()

	_, err = seedream.New(raw.URL, "k", "m", time.Second).GenerateImage(context.TODO(), seedream.ImageRequest{Prompt: "x"})
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadGateway, pe.StatusCode)
	assert.Equal(t, "upstream down", pe.Message)
}
