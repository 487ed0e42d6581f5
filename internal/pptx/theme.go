package pptx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// Archive entries consulted for style hints.
const (
	themeEntry       = "ppt/theme/theme1.xml"
	firstSlideEntry  = "ppt/slides/slide1.xml"
	slideMasterEntry = "ppt/slideMasters/slideMaster1.xml"
)

// Theme holds the style hints taken from a template. Colors are six digit
// hex strings without '#'.
type Theme struct {
	TitleFont       string     `json:"titleFont"`
	ContentFont     string     `json:"contentFont"`
	TitleFontSize   int        `json:"titleFontSize"`
	ContentFontSize int        `json:"contentFontSize"`
	TitleColor      string     `json:"titleColor"`
	ContentColor    string     `json:"contentColor"`
	Background      Background `json:"background"`
}

type Background struct {
	Color string `json:"color"`
}

func DefaultTheme() Theme {
	return Theme{
		TitleFont:       "Arial",
		ContentFont:     "Arial",
		TitleFontSize:   32,
		ContentFontSize: 18,
		TitleColor:      "1F4E79",
		ContentColor:    "404040",
		Background:      Background{Color: "FFFFFF"},
	}
}

// withDefaults fills zero fields from DefaultTheme.
func (t Theme) withDefaults() Theme {
	d := DefaultTheme()
	if t.TitleFont == "" {
		t.TitleFont = d.TitleFont
	}
	if t.ContentFont == "" {
		t.ContentFont = d.ContentFont
	}
	if t.TitleFontSize <= 0 {
		t.TitleFontSize = d.TitleFontSize
	}
	if t.ContentFontSize <= 0 {
		t.ContentFontSize = d.ContentFontSize
	}
	if !isHexColor(t.TitleColor) {
		t.TitleColor = d.TitleColor
	}
	if !isHexColor(t.ContentColor) {
		t.ContentColor = d.ContentColor
	}
	if !isHexColor(t.Background.Color) {
		t.Background.Color = d.Background.Color
	}
	return t
}

var (
	hexColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

	accent1Block = regexp.MustCompile(`(?is)<a:accent1\b[^>]*>(.*?)</a:accent1>`)
	dk1Block     = regexp.MustCompile(`(?is)<a:dk1\b[^>]*>(.*?)</a:dk1>`)
	srgbClr      = regexp.MustCompile(`(?i)<a:srgbClr\b[^>]*?\bval="([^"]*)"`)
	sysClr       = regexp.MustCompile(`(?i)<a:sysClr\b[^>]*?\blastClr="([^"]*)"`)

	latinTypeface = regexp.MustCompile(`<a:latin\b[^>]*?\btypeface="([^"]*)"`)
	majorFont     = regexp.MustCompile(`(?s)<a:majorFont\b[^>]*>(.*?)</a:majorFont>`)
	minorFont     = regexp.MustCompile(`(?s)<a:minorFont\b[^>]*>(.*?)</a:minorFont>`)

	masterBackground = regexp.MustCompile(`(?s)<p:bg\b[^>]*>(.*?)</p:bg>`)
	solidFillBlock   = regexp.MustCompile(`(?s)<a:solidFill\b[^>]*>(.*?)</a:solidFill>`)
)

func isHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// ExtractTheme reads style hints from a .pptx template. It returns an error
// only when data is not a readable zip archive; every other problem leaves
// the affected fields at their defaults.
func ExtractTheme(data []byte, logger *slog.Logger) (*Theme, error) {
	if logger == nil {
		logger = slog.Default()
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open template archive: %w", err)
	}

	b := &themeBuilder{
		theme:  DefaultTheme(),
		files:  indexEntries(zr),
		logger: logger,
	}
	b.step("colors", b.colors)
	b.step("fonts", b.fonts)
	b.step("background", b.background)

	t := b.theme
	return &t, nil
}

// themeBuilder accumulates the sub-extractions. Each step may fail on its own.
type themeBuilder struct {
	theme  Theme
	files  map[string]*zip.File
	logger *slog.Logger
}

func (b *themeBuilder) step(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("theme extraction step panicked", "step", name, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		b.logger.Warn("theme extraction step skipped", "step", name, "error", err)
	}
}

func (b *themeBuilder) colors() error {
	xml, err := b.read(themeEntry)
	if err != nil {
		return err
	}
	if c, ok := schemeColor(accent1Block, xml); ok {
		b.theme.TitleColor = c
	}
	if c, ok := schemeColor(dk1Block, xml); ok {
		b.theme.ContentColor = c
	}
	return nil
}

func (b *themeBuilder) fonts() error {
	xml, err := b.read(firstSlideEntry)
	if err != nil {
		return err
	}
	m := latinTypeface.FindStringSubmatch(xml)
	if m == nil || m[1] == "" {
		return nil
	}
	face := m[1]
	if strings.HasPrefix(face, "+") {
		resolved, err := b.themeFont(face)
		if err != nil {
			return err
		}
		face = resolved
	}
	b.theme.TitleFont = face
	b.theme.ContentFont = face
	return nil
}

// themeFont resolves +mj-lt and +mn-lt through the theme's font scheme.
func (b *themeBuilder) themeFont(ref string) (string, error) {
	var block *regexp.Regexp
	switch ref {
	case "+mj-lt":
		block = majorFont
	case "+mn-lt":
		block = minorFont
	default:
		return "", fmt.Errorf("unsupported font reference %q", ref)
	}
	xml, err := b.read(themeEntry)
	if err != nil {
		return "", err
	}
	scheme := block.FindStringSubmatch(xml)
	if scheme == nil {
		return "", fmt.Errorf("font reference %q not defined in theme", ref)
	}
	m := latinTypeface.FindStringSubmatch(scheme[1])
	if m == nil || m[1] == "" {
		return "", fmt.Errorf("font reference %q has no latin typeface", ref)
	}
	return m[1], nil
}

func (b *themeBuilder) background() error {
	xml, err := b.read(slideMasterEntry)
	if err != nil {
		return err
	}
	bg := masterBackground.FindStringSubmatch(xml)
	if bg == nil {
		return nil
	}
	fill := solidFillBlock.FindStringSubmatch(bg[1])
	if fill == nil {
		return nil
	}
	if m := srgbClr.FindStringSubmatch(fill[1]); m != nil && isHexColor(m[1]) {
		b.theme.Background.Color = strings.ToUpper(m[1])
	}
	return nil
}

func (b *themeBuilder) read(name string) (string, error) {
	f, ok := b.files[name]
	if !ok {
		return "", fmt.Errorf("entry %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(content), nil
}

func indexEntries(zr *zip.Reader) map[string]*zip.File {
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	return files
}

// schemeColor returns the first srgbClr val or sysClr lastClr inside block.
func schemeColor(block *regexp.Regexp, xml string) (string, bool) {
	m := block.FindStringSubmatch(xml)
	if m == nil {
		return "", false
	}
	inner := m[1]

	best, bestAt := "", -1
	for _, re := range []*regexp.Regexp{srgbClr, sysClr} {
		loc := re.FindStringSubmatchIndex(inner)
		if loc == nil {
			continue
		}
		if bestAt == -1 || loc[0] < bestAt {
			best, bestAt = inner[loc[2]:loc[3]], loc[0]
		}
	}
	if !isHexColor(best) {
		return "", false
	}
	return strings.ToUpper(best), true
}
