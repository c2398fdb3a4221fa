package sharecard_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"readinghub/internal/sharecard"
	"readinghub/internal/testsupport"
)

func renderCard(t *testing.T, card sharecard.Card) image.Image {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	renderer := sharecard.NewRenderer(cfg)
	var buf bytes.Buffer
	if err := renderer.Render(&buf, card); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode rendered card: %v", err)
	}
	return img
}

func TestRenderProducesConfiguredDimensions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.ShareCard.Width = 640
	cfg.ShareCard.Height = 480
	renderer := sharecard.NewRenderer(cfg)

	var buf bytes.Buffer
	err := renderer.Render(&buf, sharecard.Card{
		Quote:     "Reading is a conversation with the dead.",
		BookTitle: "On Books",
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode rendered card: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 640 || bounds.Dy() != 480 {
		t.Fatalf("unexpected dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderDrawsInk(t *testing.T) {
	img := renderCard(t, sharecard.Card{
		Quote:      "A room without books is like a body without a soul, and a very long quotation wraps across several lines on the card.",
		BookTitle:  "Collected Sayings",
		BookAuthor: "Cicero",
		UserName:   "Test Reader",
		PageNumber: "42",
	})

	bounds := img.Bounds()
	distinct := map[color.RGBA]struct{}{}
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 4 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 4 {
			r, g, b, a := img.At(x, y).RGBA()
			distinct[color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}] = struct{}{}
		}
	}
	if len(distinct) < 2 {
		t.Fatal("expected rendered text on the background, got a uniform image")
	}
}

func TestRenderEmbedsCover(t *testing.T) {
	cover := image.NewRGBA(image.Rect(0, 0, 60, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 60; x++ {
			cover.Set(x, y, color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xFF})
		}
	}
	img := renderCard(t, sharecard.Card{
		Quote: "Short quote.",
		Cover: cover,
	})

	// Sample inside the cover region.
	margin := img.Bounds().Dx() / 12
	r, g, b, _ := img.At(margin+10, margin+10).RGBA()
	if uint8(r>>8) != 0x12 || uint8(g>>8) != 0x34 || uint8(b>>8) != 0x56 {
		t.Fatalf("expected cover pixels in header region, got #%02x%02x%02x", uint8(r>>8), uint8(g>>8), uint8(b>>8))
	}
}

func TestRenderRequiresQuote(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	renderer := sharecard.NewRenderer(cfg)
	var buf bytes.Buffer
	if err := renderer.Render(&buf, sharecard.Card{Quote: "   "}); err == nil {
		t.Fatal("expected error for empty quote")
	}
}
