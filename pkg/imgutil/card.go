package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/fogleman/gg"
	"github.com/mylxsw/festival-server/pkg/misc"
	"github.com/skip2/go-qrcode"
)

// Imager 诗词卡片渲染
type Imager struct {
	fontPath string
}

func NewImager(fontPath string) *Imager {
	return &Imager{fontPath: fontPath}
}

// PoemCard 诗词卡片：上方为插图，下方为诗词正文，link 不为空时在右下角附加分享二维码
type PoemCard struct {
	Illustration []byte
	Title        string
	Lines        []string
	Link         string
	Width        int
}

func (builder *Imager) PoemCard(card PoemCard) ([]byte, error) {
	width := card.Width
	if width <= 0 {
		width = 1080
	}

	illustration, _, err := Decode(card.Illustration)
	if err != nil {
		return nil, err
	}

	b := illustration.Bounds()
	picHeight := width * b.Dy() / max(1, b.Dx())
	illustration = (&Resize{Width: width, Height: max(1, picHeight), Fit: FitFill}).Apply(illustration)

	padding := width / 18
	lineHeight := float64(width) / 14
	textHeight := padding*2 + int(lineHeight*float64(len(card.Lines)+2))

	dc := gg.NewContext(width, picHeight+textHeight)
	dc.SetHexColor("#FBF6EC")
	dc.Clear()
	dc.DrawImage(illustration, 0, 0)

	dc.SetHexColor("#3A2A1A")
	if builder.fontPath != "" {
		if err := dc.LoadFontFace(builder.fontPath, lineHeight*0.6); err != nil {
			return nil, fmt.Errorf("加载字体文件失败: %w", err)
		}
	}

	y := float64(picHeight + padding)
	if card.Title != "" {
		dc.DrawStringAnchored(card.Title, float64(width)/2, y+lineHeight/2, 0.5, 0.5)
		y += lineHeight * 1.5
	}

	for _, line := range card.Lines {
		dc.DrawStringAnchored(strings.TrimSpace(line), float64(width)/2, y+lineHeight/2, 0.5, 0.5)
		y += lineHeight
	}

	if card.Link != "" {
		qrSize := textHeight / 2
		qrData, err := builder.QR(card.Link, qrSize)
		if err != nil {
			return nil, err
		}

		qr, _, err := image.Decode(bytes.NewReader(qrData))
		if err != nil {
			return nil, fmt.Errorf("解码二维码失败: %w", err)
		}

		dc.DrawImage(qr, width-qrSize-padding/2, picHeight+textHeight-qrSize-padding/2)
	}

	buf := bytes.NewBuffer(nil)
	if err := dc.EncodePNG(buf); err != nil {
		return nil, fmt.Errorf("编码 PNG 数据失败: %w", err)
	}

	return buf.Bytes(), nil
}

// CardTitle 卡片标题过长时截断
func CardTitle(title string) string {
	return misc.SubString(title, 16)
}

func (builder *Imager) QR(link string, size int) ([]byte, error) {
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	qr.DisableBorder = true
	qrData, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("生成 PNG 数据失败: %w", err)
	}

	return qrData, nil
}
