package poem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/pkg/misc"
	"github.com/mylxsw/go-utils/array"
	"github.com/sashabaranov/go-openai"
)

const (
	SourceLLM      = "llm"
	SourceTemplate = "template"
)

// Poem 诗词内容及配图提示语
type Poem struct {
	Title       string   `json:"title"`
	Author      string   `json:"author,omitempty"`
	Lines       []string `json:"lines"`
	ImagePrompt string   `json:"image_prompt"`
	Festival    string   `json:"festival,omitempty"`
	Source      string   `json:"source"`
}

type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (response openai.ChatCompletionResponse, err error)
}

type Writer struct {
	client ChatClient
	model  string
}

// New 创建诗词生成器，client 为 nil 时只使用内置模板
func New(client ChatClient, model string) *Writer {
	return &Writer{client: client, model: model}
}

const systemPrompt = `你是一位精通中国古典诗词的诗人。请根据用户给出的主题创作一首原创中文诗词，并为它设计一段用于 AI 绘画的配图描述。
只输出 JSON，不要输出任何其它内容，格式如下：
{"title": "诗词标题", "lines": ["第一句", "第二句", "第三句", "第四句"], "image_prompt": "配图描述，包含场景、色彩与画风"}`

// Compose 生成诗词，大语言模型不可用或者返回内容无法解析时，使用内置的节日模板
func (w *Writer) Compose(ctx context.Context, theme, style string) Poem {
	festival := DetectFestival(theme)

	if w.client != nil {
		p, err := w.ask(ctx, theme, style)
		if err == nil {
			p.Festival = festival
			return *p
		}

		log.F(log.M{"theme": theme, "style": style}).Warningf("compose poem with llm failed, fallback to template: %v", err)
	}

	p := Template(festival)
	if style != "" {
		p.ImagePrompt = p.ImagePrompt + "，" + style
	}

	return p
}

func (w *Writer) ask(ctx context.Context, theme, style string) (*Poem, error) {
	question := "主题：" + theme
	if style != "" {
		question += "\n风格：" + style
	}

	resp, err := w.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: w.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		MaxTokens:   800,
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	return Parse(resp.Choices[0].Message.Content)
}

// Parse 解析模型返回的 JSON，允许内容被 markdown 代码块包裹
func Parse(content string) (*Poem, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json object found in: %s", misc.SubString(content, 50))
	}

	var p Poem
	if err := json.Unmarshal([]byte(content[start:end+1]), &p); err != nil {
		return nil, fmt.Errorf("decode poem failed: %w", err)
	}

	p.Lines = array.Filter(
		array.Map(p.Lines, func(line string, _ int) string { return strings.TrimSpace(line) }),
		func(line string, _ int) bool { return line != "" },
	)

	if strings.TrimSpace(p.Title) == "" || len(p.Lines) == 0 {
		return nil, errors.New("poem title or lines missing")
	}

	if strings.TrimSpace(p.ImagePrompt) == "" {
		p.ImagePrompt = p.Title + "，" + strings.Join(p.Lines, "")
	}

	p.Source = SourceLLM
	return &p, nil
}
