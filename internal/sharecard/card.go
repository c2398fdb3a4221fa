// Package sharecard renders reading notes as PNG images suitable for
// sharing outside the app.
package sharecard

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"readinghub/internal/config"
)

// Card holds the content rendered onto a share image.
type Card struct {
	Quote      string
	BookTitle  string
	BookAuthor string
	UserName   string
	PageNumber string
	Cover      image.Image
}

// Renderer draws share cards at a fixed size.
type Renderer struct {
	width  int
	height int
}

var (
	background = color.RGBA{R: 0xF7, G: 0xF3, B: 0xEB, A: 0xFF}
	inkColor   = color.RGBA{R: 0x2B, G: 0x26, B: 0x20, A: 0xFF}
	mutedColor = color.RGBA{R: 0x8A, G: 0x80, B: 0x72, A: 0xFF}
	ruleColor  = color.RGBA{R: 0xD8, G: 0xD0, B: 0xC2, A: 0xFF}
)

// NewRenderer builds a renderer using the configured card dimensions.
func NewRenderer(cfg *config.Config) *Renderer {
	width := cfg.ShareCard.Width
	if width <= 0 {
		width = 1080
	}
	height := cfg.ShareCard.Height
	if height <= 0 {
		height = 1080
	}
	return &Renderer{width: width, height: height}
}

// Render draws the card and writes it as PNG.
func (r *Renderer) Render(w io.Writer, card Card) error {
	quote := strings.TrimSpace(card.Quote)
	if quote == "" {
		return errors.New("sharecard: quote content required")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, xdraw.Src)

	margin := r.width / 12
	cursorY := margin

	if card.Cover != nil {
		coverHeight := r.height / 4
		coverWidth := coverHeight * 2 / 3
		dst := image.Rect(margin, cursorY, margin+coverWidth, cursorY+coverHeight)
		xdraw.ApproxBiLinear.Scale(canvas, dst, card.Cover, card.Cover.Bounds(), xdraw.Over, nil)
		cursorY += coverHeight + margin/2
	}

	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil() + 6
	maxLineWidth := r.width - 2*margin

	for _, line := range wrapText(quote, face, maxLineWidth) {
		drawLine(canvas, face, inkColor, margin, cursorY, line)
		cursorY += lineHeight
	}
	cursorY += lineHeight

	// Separator rule above the attribution block.
	rule := image.Rect(margin, cursorY, r.width-margin, cursorY+2)
	xdraw.Draw(canvas, rule, image.NewUniform(ruleColor), image.Point{}, xdraw.Src)
	cursorY += lineHeight

	attribution := formatAttribution(card)
	for _, line := range attribution {
		drawLine(canvas, face, mutedColor, margin, cursorY, line)
		cursorY += lineHeight
	}

	return png.Encode(w, canvas)
}

func formatAttribution(card Card) []string {
	var lines []string
	title := strings.TrimSpace(card.BookTitle)
	author := strings.TrimSpace(card.BookAuthor)
	switch {
	case title != "" && author != "":
		lines = append(lines, title+" / "+author)
	case title != "":
		lines = append(lines, title)
	case author != "":
		lines = append(lines, author)
	}
	if page := strings.TrimSpace(card.PageNumber); page != "" {
		lines = append(lines, "p. "+page)
	}
	if user := strings.TrimSpace(card.UserName); user != "" {
		lines = append(lines, "shared by "+user)
	}
	return lines
}

func drawLine(dst *image.RGBA, face font.Face, ink color.Color, x, y int, text string) {
	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	drawer.DrawString(text)
}

// wrapText breaks text into lines that fit maxWidth, splitting long words
// when a single word overflows the line on its own.
func wrapText(text string, face font.Face, maxWidth int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := ""
		for _, word := range words {
			for font.MeasureString(face, word).Ceil() > maxWidth && len(word) > 1 {
				cut := fitRunes(word, face, maxWidth)
				if current != "" {
					lines = append(lines, current)
					current = ""
				}
				lines = append(lines, word[:cut])
				word = word[cut:]
			}
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if font.MeasureString(face, candidate).Ceil() <= maxWidth {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
			}
			current = word
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

func fitRunes(word string, face font.Face, maxWidth int) int {
	runes := []rune(word)
	for i := len(runes) - 1; i > 0; i-- {
		if font.MeasureString(face, string(runes[:i])).Ceil() <= maxWidth {
			return len(string(runes[:i]))
		}
	}
	return len(string(runes[:1]))
}
