package creative

import (
	"context"
	"fmt"
	"strings"

	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/festival-server/pkg/imgutil"
	"github.com/mylxsw/festival-server/pkg/misc"
	"github.com/mylxsw/festival-server/pkg/pipeline"
	"github.com/mylxsw/festival-server/pkg/poem"
	"github.com/mylxsw/festival-server/pkg/repo"
)

const (
	MaxThemeLength = 100
	// NamespacePoemCard 诗词卡片存储目录
	NamespacePoemCard = "poem-cards"
)

type PoemWriter interface {
	Compose(ctx context.Context, theme, style string) poem.Poem
}

type CardRenderer interface {
	PoemCard(card imgutil.PoemCard) ([]byte, error)
}

type PoemService struct {
	writer    PoemWriter
	generator *Generator
	fetcher   pipeline.Fetcher
	store     SourceStore
	records   RecordStore
	imager    CardRenderer
	baseURL   string
}

func NewPoemService(writer PoemWriter, generator *Generator, fetcher pipeline.Fetcher, store SourceStore, records RecordStore, imager CardRenderer, baseURL string) *PoemService {
	return &PoemService{
		writer:    writer,
		generator: generator,
		fetcher:   fetcher,
		store:     store,
		records:   records,
		imager:    imager,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

type PoemRequest struct {
	Theme     string  `json:"theme"`
	Style     string  `json:"style,omitempty"`
	Size      string  `json:"size,omitempty"`
	Quality   Quality `json:"quality,omitempty"`
	WithCard  bool    `json:"with_card,omitempty"`
	ProjectID string  `json:"project_id,omitempty"`
	UserKey   string  `json:"-"`
}

type PoemResult struct {
	RecordID int64                    `json:"record_id"`
	Poem     poem.Poem                `json:"poem"`
	Outcome  *Outcome                 `json:"outcome,omitempty"`
	Card     *pipeline.ProcessedImage `json:"card,omitempty"`
}

// Create 生成诗词并配图，可选生成诗词卡片
func (s *PoemService) Create(ctx context.Context, req PoemRequest) (*PoemResult, error) {
	theme := strings.TrimSpace(req.Theme)
	if theme == "" {
		return nil, invalid("theme", "theme is required")
	}

	if misc.WordCount(theme) > MaxThemeLength {
		return nil, invalid("theme", "theme must be at most %d characters", MaxThemeLength)
	}

	id, err := s.records.Create(ctx, repo.RecordCreate{
		UserKey: req.UserKey,
		Kind:    repo.RecordKindPoem,
		Prompt:  theme,
		Payload: req,
	})
	if err != nil {
		return nil, err
	}

	p := s.writer.Compose(ctx, theme, req.Style)
	res := &PoemResult{RecordID: id, Poem: p}

	imagePrompt := p.ImagePrompt
	if req.Style != "" && !strings.Contains(imagePrompt, req.Style) {
		imagePrompt += "，" + req.Style
	}

	out, err := s.generator.GenerateImage(ctx, GenerationRequest{
		Prompt:    misc.WordTruncate(imagePrompt, MaxPromptLength),
		Size:      req.Size,
		Quality:   req.Quality,
		NumImages: 1,
		ProjectID: req.ProjectID,
	})
	res.Outcome = out
	if err != nil {
		if mErr := s.records.MarkFailed(ctx, id, err.Error()); mErr != nil {
			log.F(log.M{"record_id": id}).Errorf("mark poem record failed failed: %v", mErr)
		}

		return res, err
	}

	if req.WithCard && s.imager != nil {
		card, err := s.renderCard(ctx, id, p, out.Images[0], req.ProjectID)
		if err != nil {
			log.F(log.M{"record_id": id}).Warningf("render poem card failed: %v", err)
		} else {
			res.Card = card
		}
	}

	if err := s.records.MarkSuccess(ctx, id, map[string]any{"poem": p, "images": out.Images, "card": res.Card}); err != nil {
		log.F(log.M{"record_id": id}).Errorf("mark poem record success failed: %v", err)
	}

	return res, nil
}

func (s *PoemService) renderCard(ctx context.Context, id int64, p poem.Poem, illustration pipeline.ProcessedImage, projectID string) (*pipeline.ProcessedImage, error) {
	payload, err := s.fetcher.Download(ctx, illustration.URL)
	if err != nil {
		return nil, err
	}

	link := ""
	if s.baseURL != "" {
		link = fmt.Sprintf("%s/records/%d", s.baseURL, id)
	}

	data, err := s.imager.PoemCard(imgutil.PoemCard{
		Illustration: payload.Data,
		Title:        imgutil.CardTitle(p.Title),
		Lines:        p.Lines,
		Link:         link,
	})
	if err != nil {
		return nil, err
	}

	return s.store.StoreRaw(ctx, NamespacePoemCard, projectID, data, imgutil.FormatPNG)
}
