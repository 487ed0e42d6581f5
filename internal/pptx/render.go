package pptx

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"

	ppt "github.com/VantageDataChat/GoPPT"

	"github.com/gnemet/slidegen/internal/slides"
)

// ContentType is the MIME type of a .pptx document.
const ContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// Document properties stamped on every generated file.
const (
	docCreator  = "AI Presentation Generator"
	docCompany  = "AI Generated"
	docRevision = "1"
)

const bulletChar = "•"

type box struct {
	x, y, w, h float64 // inches
}

type textStyle struct {
	font  string
	size  int
	color string
	bold  bool
}

// layout is the set of boxes and styles applied to every slide.
type layout struct {
	title        box
	content      box
	titleStyle   textStyle
	contentStyle textStyle
	background   string // empty: leave the slide background alone
	slideNumber  bool
}

var defaultLayout = layout{
	title:        box{0.5, 0.5, 9, 1},
	content:      box{0.5, 2, 9, 4},
	titleStyle:   textStyle{font: "Arial", size: 28, color: "1F497D", bold: true},
	contentStyle: textStyle{font: "Arial", size: 18, color: "444444"},
}

var (
	slideNumberBox   = box{9.2, 6.8, 0.6, 0.3}
	slideNumberStyle = textStyle{font: "Arial", size: 12, color: "666666"}
)

func themedLayout(t Theme) layout {
	t = t.withDefaults()
	return layout{
		title:        box{0.5, 0.7, 9, 1.2},
		content:      box{0.8, 2.2, 8.5, 4.5},
		titleStyle:   textStyle{font: t.TitleFont, size: t.TitleFontSize, color: t.TitleColor, bold: true},
		contentStyle: textStyle{font: t.ContentFont, size: t.ContentFontSize, color: t.ContentColor},
		background:   t.Background.Color,
		slideNumber:  true,
	}
}

// Renderer turns a slide document into a .pptx file. It never copies
// anything from a template; a Theme only supplies fonts and colors.
type Renderer struct {
	logger *slog.Logger
	build  func(doc *slides.Document, l layout) ([]byte, error)
}

func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{logger: logger.With("component", "renderer")}
	r.build = r.write
	return r
}

// Render builds the presentation. With a non-nil theme a failure in themed
// mode is logged and the document is rendered again with the default layout;
// a failure in default mode is returned.
func (r *Renderer) Render(doc *slides.Document, theme *Theme) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("no slide document to render")
	}
	if theme != nil {
		data, err := r.build(doc, themedLayout(*theme))
		if err == nil {
			return data, nil
		}
		r.logger.Warn("themed rendering failed, falling back to default layout", "error", err)
	}
	return r.build(doc, defaultLayout)
}

func (r *Renderer) write(doc *slides.Document, l layout) (data []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			data, err = nil, fmt.Errorf("render panic: %v", rec)
		}
	}()

	p := ppt.New()
	props := p.GetDocumentProperties()
	props.Creator = docCreator
	props.LastModifiedBy = docCreator
	props.Company = docCompany
	props.Revision = docRevision
	props.Title = doc.PresentationTitle
	props.Subject = doc.PresentationTitle

	for i, s := range doc.Slides {
		var slide *ppt.Slide
		if i == 0 {
			// ppt.New starts with one blank slide
			slide = p.GetActiveSlide()
		} else {
			slide = p.CreateSlide()
		}
		r.fillSlide(slide, s, i, l)
	}

	var buf bytes.Buffer
	if err := p.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write presentation: %w", err)
	}
	r.logger.Debug("presentation rendered", "slides", len(doc.Slides), "bytes", buf.Len(), "themed", l.slideNumber)
	return buf.Bytes(), nil
}

func (r *Renderer) fillSlide(slide *ppt.Slide, s slides.Slide, index int, l layout) {
	if l.background != "" {
		slide.SetBackground(ppt.NewFill().SetSolid(ppt.NewColor(l.background)))
	}

	title := s.Title
	if title == "" {
		title = slides.DefaultTitle(index)
	}
	tb := placeText(slide, l.title)
	applyStyle(tb.CreateTextRun(title), l.titleStyle)
	alignCenter(tb.GetActiveParagraph())

	switch {
	case s.Content.Empty():
	case s.Content.IsList():
		cb := placeText(slide, l.content)
		cb.SetTextAnchor(ppt.TextAnchorTop)
		for j, item := range s.Content.Bullets {
			para := cb.GetActiveParagraph()
			if j > 0 {
				para = cb.CreateParagraph()
			}
			applyStyle(para.CreateTextRun(item), l.contentStyle)
			b := ppt.NewBullet()
			b.SetCharBullet(bulletChar, l.contentStyle.font)
			para.SetBullet(b)
		}
	default:
		cb := placeText(slide, l.content)
		cb.SetTextAnchor(ppt.TextAnchorTop)
		applyStyle(cb.CreateTextRun(s.Content.Paragraph), l.contentStyle)
	}

	if l.slideNumber {
		nb := placeText(slide, slideNumberBox)
		applyStyle(nb.CreateTextRun(strconv.Itoa(index+1)), slideNumberStyle)
		alignCenter(nb.GetActiveParagraph())
	}
}

func placeText(slide *ppt.Slide, b box) *ppt.RichTextShape {
	rt := slide.CreateRichTextShape()
	rt.SetOffsetX(ppt.Inch(b.x)).SetOffsetY(ppt.Inch(b.y))
	rt.SetWidth(ppt.Inch(b.w)).SetHeight(ppt.Inch(b.h))
	rt.SetWordWrap(true)
	return rt
}

func applyStyle(tr *ppt.TextRun, st textStyle) {
	tr.GetFont().SetName(st.font).SetSize(st.size).SetBold(st.bold).SetColor(ppt.NewColor(st.color))
}

func alignCenter(p *ppt.Paragraph) {
	p.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalCenter))
}
