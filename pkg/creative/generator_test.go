package creative_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mylxsw/festival-server/pkg/ai/seedream"
	"github.com/mylxsw/festival-server/pkg/creative"
	"github.com/mylxsw/festival-server/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider 依次返回预设的图片数量，超出预设后返回 fallback 张
type fakeProvider struct {
	lock     sync.Mutex
	counts   []int
	fallback int
	err      error
	errAfter int
	requests []seedream.ImageRequest
}

func (p *fakeProvider) GenerateImage(ctx context.Context, req seedream.ImageRequest) (*seedream.ImageResponse, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	call := len(p.requests)
	p.requests = append(p.requests, req)

	if p.err != nil && call >= p.errAfter {
		return nil, p.err
	}

	n := p.fallback
	if call < len(p.counts) {
		n = p.counts[call]
	}

	resp := &seedream.ImageResponse{Model: req.Model}
	for i := 0; i < n; i++ {
		resp.Data = append(resp.Data, seedream.ImageData{URL: fmt.Sprintf("https://provider.test/%d-%d.png", call, i)})
	}

	return resp, nil
}

// fakeProcessor 所有 URL 都视为处理成功，failAll 时全部失败
type fakeProcessor struct {
	lock    sync.Mutex
	failAll bool
	options []pipeline.BatchOptions
	urls    [][]string
}

func (p *fakeProcessor) ProcessBatch(ctx context.Context, urls []string, opt pipeline.BatchOptions) []pipeline.Result {
	p.lock.Lock()
	p.options = append(p.options, opt)
	p.urls = append(p.urls, urls)
	p.lock.Unlock()

	results := make([]pipeline.Result, 0, len(urls))
	for i, u := range urls {
		if p.failAll {
			results = append(results, pipeline.Result{SourceURL: u, Error: "download failed", Err: errors.New("download failed")})
			continue
		}

		results = append(results, pipeline.Result{
			Success:   true,
			SourceURL: u,
			Image: &pipeline.ProcessedImage{
				URL:              fmt.Sprintf("https://cdn.test/generated-images/default/%d.webp?token=x", i),
				Key:              fmt.Sprintf("generated-images/default/%d.webp", i),
				OriginalSize:     1000,
				CompressedSize:   400,
				CompressionRatio: 60,
			},
		})
	}

	return results
}

type sleepRecorder struct {
	lock   sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

func newGenerator(provider *fakeProvider, processor *fakeProcessor, recorder *sleepRecorder) *creative.Generator {
	return creative.NewGenerator(provider, processor, creative.WithSleep(recorder.sleep), creative.WithModel("seedream-test"))
}

func TestGenerateImage(t *testing.T) {
	provider := &fakeProvider{counts: []int{2}}
	processor := &fakeProcessor{}
	recorder := &sleepRecorder{}

	out, err := newGenerator(provider, processor, recorder).GenerateImage(context.TODO(), creative.GenerationRequest{
		Prompt:    "秋山红叶",
		Size:      "2K",
		NumImages: 1,
	})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, creative.StateDone, out.State)
	assert.Len(t, out.URLs, 2)
	assert.Len(t, out.Images, 2)
	assert.Equal(t, 2, out.Generated)
	assert.Zero(t, out.SupplementalCalls)
	assert.Empty(t, recorder.sleeps)
	for _, img := range out.Images {
		assert.GreaterOrEqual(t, img.CompressionRatio, 0.0)
	}

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, "seedream-test", req.Model)
	assert.Equal(t, "2K", req.Size)
	assert.Equal(t, 2, req.NumImages)
	assert.Equal(t, seedream.SequentialAuto, req.SequentialImageGeneration)
	require.NotNil(t, req.SequentialOptions)
	assert.Equal(t, 2, req.SequentialOptions.MaxImages)
	assert.Equal(t, seedream.ResponseFormatURL, req.ResponseFormat)

	require.Len(t, processor.options, 1)
	assert.Equal(t, creative.ProcessConcurrency, processor.options[0].Concurrency)
	assert.Equal(t, 80, processor.options[0].Quality)
	assert.Nil(t, processor.options[0].Resize)
}

func TestGenerateImageRequestsAtLeastTwo(t *testing.T) {
	provider := &fakeProvider{counts: []int{2}}
	processor := &fakeProcessor{}

	out, err := newGenerator(provider, processor, &sleepRecorder{}).GenerateImage(context.TODO(), creative.GenerationRequest{Prompt: "中秋月圆"})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Requested)
	assert.Equal(t, 2, provider.requests[0].NumImages)
	// 多返回的图片不截断
	assert.Len(t, out.Images, 2)
}

func TestGenerateImageSupplementalCalls(t *testing.T) {
	provider := &fakeProvider{counts: []int{1}, fallback: 1}
	processor := &fakeProcessor{}
	recorder := &sleepRecorder{}

	out, err := newGenerator(provider, processor, recorder).GenerateImage(context.TODO(), creative.GenerationRequest{
		Prompt:    "春节灯笼",
		NumImages: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, out.SupplementalCalls)
	assert.Equal(t, 3, out.Generated)
	assert.Len(t, out.URLs, 3)

	require.Len(t, provider.requests, 3)
	for _, req := range provider.requests[1:] {
		assert.Equal(t, 1, req.NumImages)
		assert.Equal(t, seedream.SequentialDisabled, req.SequentialImageGeneration)
		assert.Nil(t, req.SequentialOptions)
	}

	assert.Equal(t, []time.Duration{time.Second, time.Second}, recorder.sleeps)
	assert.Len(t, processor.urls[0], 3)
}

func TestGenerateImageSupplementalFailureSkipped(t *testing.T) {
	provider := &fakeProvider{counts: []int{1}, err: errors.New("provider busy"), errAfter: 1}
	processor := &fakeProcessor{}

	out, err := newGenerator(provider, processor, &sleepRecorder{}).GenerateImage(context.TODO(), creative.GenerationRequest{
		Prompt:    "端午龙舟",
		NumImages: 3,
	})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, 2, out.SupplementalCalls)
	assert.Len(t, out.Images, 1)
}

func TestGenerateImagePrimaryFailure(t *testing.T) {
	providerErr := &seedream.ProviderError{StatusCode: 401, Code: "AuthenticationError", Message: "invalid api key"}
	provider := &fakeProvider{err: providerErr}
	processor := &fakeProcessor{}

	out, err := newGenerator(provider, processor, &sleepRecorder{}).GenerateImage(context.TODO(), creative.GenerationRequest{Prompt: "元宵花灯"})
	require.Error(t, err)

	var pe *seedream.ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.False(t, out.Success)
	assert.Equal(t, creative.StateFailed, out.State)
	assert.Empty(t, processor.options)
}

func TestGenerateImageAllFailed(t *testing.T) {
	provider := &fakeProvider{counts: []int{2}}
	processor := &fakeProcessor{failAll: true}

	out, err := newGenerator(provider, processor, &sleepRecorder{}).GenerateImage(context.TODO(), creative.GenerationRequest{Prompt: "七夕鹊桥", NumImages: 2})
	assert.ErrorIs(t, err, creative.ErrAllImagesFailed)
	assert.False(t, out.Success)
	assert.Equal(t, "all images failed processing", out.Error)
	assert.Len(t, out.Failures, 2)
	assert.Empty(t, out.URLs)
}

func TestGenerateImageNoImages(t *testing.T) {
	provider := &fakeProvider{counts: []int{0}, fallback: 0}
	processor := &fakeProcessor{}

	_, err := newGenerator(provider, processor, &sleepRecorder{}).GenerateImage(context.TODO(), creative.GenerationRequest{Prompt: "重阳登高"})
	assert.ErrorIs(t, err, creative.ErrNoImageGenerated)
	assert.Empty(t, processor.options)
}

func TestGenerateImageValidationBeforeNetwork(t *testing.T) {
	provider := &fakeProvider{counts: []int{2}}

	_, err := newGenerator(provider, &fakeProcessor{}, &sleepRecorder{}).GenerateImage(context.TODO(), creative.GenerationRequest{Prompt: "", NumImages: 1})
	var ve *creative.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "prompt", ve.Field)
	assert.Empty(t, provider.requests)
}

func TestGenerateImageTierAndResize(t *testing.T) {
	provider := &fakeProvider{counts: []int{2, 2, 2}}
	processor := &fakeProcessor{}
	gen := newGenerator(provider, processor, &sleepRecorder{})

	_, err := gen.GenerateImage(context.TODO(), creative.GenerationRequest{Prompt: "山水", Size: "3000x1000"})
	require.NoError(t, err)
	assert.Equal(t, "4K", provider.requests[0].Size)
	require.NotNil(t, processor.options[0].Resize)
	assert.Equal(t, 3000, processor.options[0].Resize.Width)
	assert.Equal(t, 1000, processor.options[0].Resize.Height)

	_, err = gen.GenerateImage(context.TODO(), creative.GenerationRequest{Prompt: "山水", Size: "1024x768"})
	require.NoError(t, err)
	assert.Equal(t, "2K", provider.requests[1].Size)
	require.NotNil(t, processor.options[1].Resize)

	_, err = gen.GenerateImage(context.TODO(), creative.GenerationRequest{Prompt: "山水", Size: "abcxdef"})
	require.NoError(t, err)
	assert.Equal(t, "2K", provider.requests[2].Size)
	assert.Nil(t, processor.options[2].Resize)
}

func TestGenerateImageQualityMapping(t *testing.T) {
	cases := []struct {
		quality creative.Quality
		want    int
	}{
		{creative.Quality{}, 80},
		{creative.QualityTier("standard"), 80},
		{creative.QualityTier("hd"), 95},
		{creative.QualityLevel(7), 70},
		{creative.QualityLevel(10), 100},
	}

	for _, c := range cases {
		processor := &fakeProcessor{}
		_, err := newGenerator(&fakeProvider{fallback: 2}, processor, &sleepRecorder{}).GenerateImage(context.TODO(), creative.GenerationRequest{
			Prompt:  "月下桂花",
			Quality: c.quality,
		})
		require.NoError(t, err)
		assert.Equal(t, c.want, processor.options[0].Quality)
	}
}

func TestGenerateImagesBatch(t *testing.T) {
	provider := &fakeProvider{counts: []int{2}, err: errors.New("quota exceeded"), errAfter: 1}
	processor := &fakeProcessor{}
	recorder := &sleepRecorder{}

	outcomes := newGenerator(provider, processor, recorder).GenerateImagesBatch(
		context.TODO(),
		[]string{"中秋赏月", "春节团圆", ""},
		creative.GenerationRequest{NumImages: 1},
	)

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Success)
	assert.Equal(t, "中秋赏月", outcomes[0].Prompt)

	assert.False(t, outcomes[1].Success)
	assert.Contains(t, outcomes[1].Error, "quota exceeded")

	assert.False(t, outcomes[2].Success)
	assert.Contains(t, outcomes[2].Error, "prompt")

	// 第一个提示语之前不等待
	assert.Equal(t, []time.Duration{time.Second, time.Second}, recorder.sleeps)
	assert.Len(t, provider.requests, 2)
}

func TestGenerateImagesBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := newGenerator(&fakeProvider{fallback: 2}, &fakeProcessor{}, &sleepRecorder{}).GenerateImagesBatch(
		ctx,
		[]string{"a", "b"},
		creative.GenerationRequest{},
	)

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[1].Success)
	assert.Contains(t, outcomes[1].Error, context.Canceled.Error())
}
