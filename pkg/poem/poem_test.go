package poem_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mylxsw/festival-server/pkg/poem"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	content string
	err     error
	request openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.request = request
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}

	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}},
	}, nil
}

func TestWriter_ComposeWithLLM(t *testing.T) {
	chat := &fakeChat{content: "```json\n{\"title\":\"秋月\",\"lines\":[\"秋山红叶醉\",\" \",\"明月照归人\"],\"image_prompt\":\"秋山明月\"}\n```"}
	p := poem.New(chat, "test-model").Compose(context.TODO(), "中秋 秋山红叶", "水墨")

	assert.Equal(t, "秋月", p.Title)
	assert.Equal(t, []string{"秋山红叶醉", "明月照归人"}, p.Lines)
	assert.Equal(t, "秋山明月", p.ImagePrompt)
	assert.Equal(t, "中秋", p.Festival)
	assert.Equal(t, poem.SourceLLM, p.Source)

	assert.Equal(t, "test-model", chat.request.Model)
	require.Len(t, chat.request.Messages, 2)
	assert.Contains(t, chat.request.Messages[1].Content, "水墨")
}

func TestWriter_ComposeFallback(t *testing.T) {
	p := poem.New(&fakeChat{err: errors.New("llm down")}, "m").Compose(context.TODO(), "端午节快乐", "")
	assert.Equal(t, poem.SourceTemplate, p.Source)
	assert.Equal(t, "端午", p.Festival)
	assert.NotEmpty(t, p.Lines)

	p = poem.New(&fakeChat{content: "抱歉，我无法完成"}, "m").Compose(context.TODO(), "春节", "剪纸")
	assert.Equal(t, poem.SourceTemplate, p.Source)
	assert.Equal(t, "春节", p.Festival)
	assert.Contains(t, p.ImagePrompt, "剪纸")

	p = poem.New(nil, "m").Compose(context.TODO(), "随便写点什么", "")
	assert.Equal(t, poem.FestivalDefault, p.Festival)
	assert.Equal(t, poem.SourceTemplate, p.Source)
}

func TestDetectFestival(t *testing.T) {
	cases := map[string]string{
		"中秋赏月":                "中秋",
		"Mid-Autumn Festival": "中秋",
		"元宵灯会":                "元宵",
		"九九重阳登高":              "重阳",
		"七夕":                  "七夕",
		"除夕守岁":                "春节",
		"hello":               poem.FestivalDefault,
	}

	for theme, expected := range cases {
		assert.Equal(t, expected, poem.DetectFestival(theme), theme)
	}
}

func TestTemplateIsCopied(t *testing.T) {
	p := poem.Template("中秋")
	p.Lines[0] = "changed"

	assert.NotEqual(t, "changed", poem.Template("中秋").Lines[0])
	assert.Equal(t, poem.FestivalDefault, poem.Template("unknown").Festival)
}

func TestParse(t *testing.T) {
	_, err := poem.Parse(`{"title":"","lines":[]}`)
	assert.Error(t, err)

	p, err := poem.Parse(`{"title":"t","lines":["a","b"]}`)
	require.NoError(t, err)
	assert.Equal(t, "t，ab", p.ImagePrompt)
}
