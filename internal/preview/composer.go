package preview

import (
	"bytes"
	"fmt"
	"image/color"
	"net/http"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	apperrors "github.com/stockguides/site/pkg/errors"
)

// Composer paints preview cards as PNG bytes.
type Composer interface {
	Compose(card Card) ([]byte, error)
	Fallback() ([]byte, error)
}

const (
	margin       = 80.0
	titleSize    = 60.0
	excerptSize  = 30.0
	badgeSize    = 24.0
	footerSize   = 26.0
	lineSpacing  = 1.25
	badgePadX    = 22.0
	badgePadY    = 12.0
	badgeTop     = 72.0
	titleTop     = 170.0
	footerBase   = Height - 64.0
	fallbackText = "Investing guides & broker reviews"
)

var (
	white     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	softWhite = color.RGBA{0xff, 0xff, 0xff, 0xd9}
	rule      = color.RGBA{0xff, 0xff, 0xff, 0x40}
)

// GGComposer draws cards with the gg 2D library using the embedded Go fonts.
// Parsed fonts are shared; faces are built per call since a face caches
// glyphs and is not safe for concurrent use.
type GGComposer struct {
	regular *truetype.Font
	bold    *truetype.Font
	site    Identity
}

func NewGGComposer(site Identity) (*GGComposer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing bold font: %w", err)
	}
	return &GGComposer{regular: regular, bold: bold, site: site}, nil
}

// Compose paints a themed card.
func (c *GGComposer) Compose(card Card) (out []byte, err error) {
	defer recoverRender(&err)

	dc := gg.NewContext(Width, Height)
	paintBackground(dc, card.Theme)
	c.drawBadge(dc, card.Category, card.Theme)

	dc.SetFontFace(c.face(c.bold, titleSize))
	dc.SetColor(white)
	titleLines := dc.WordWrap(card.Title, Width-2*margin)
	dc.DrawStringWrapped(card.Title, margin, titleTop, 0, 0, Width-2*margin, lineSpacing, gg.AlignLeft)

	if excerpt := strings.TrimSpace(card.Excerpt); excerpt != "" {
		top := titleTop + float64(len(titleLines))*titleSize*lineSpacing + 28
		dc.SetFontFace(c.face(c.regular, excerptSize))
		dc.SetColor(softWhite)
		dc.DrawStringWrapped(excerpt, margin, top, 0, 0, Width-2*margin, lineSpacing+0.1, gg.AlignLeft)
	}

	site := card.Site
	if site.Name == "" {
		site = c.site
	}
	c.drawFooter(dc, site)
	return encode(dc)
}

// Fallback paints the generic branded card. It needs no per-slug input.
func (c *GGComposer) Fallback() (out []byte, err error) {
	defer recoverRender(&err)

	dc := gg.NewContext(Width, Height)
	paintBackground(dc, fallbackTheme)

	dc.SetFontFace(c.face(c.bold, titleSize+12))
	dc.SetColor(white)
	name := c.site.Name
	if name == "" {
		name = "Stock Guides"
	}
	dc.DrawStringAnchored(name, Width/2, Height/2-40, 0.5, 0.5)

	dc.SetFontFace(c.face(c.regular, excerptSize+4))
	dc.SetColor(softWhite)
	tagline := c.site.Tagline
	if tagline == "" {
		tagline = fallbackText
	}
	dc.DrawStringAnchored(tagline, Width/2, Height/2+40, 0.5, 0.5)

	if c.site.Domain != "" {
		dc.SetFontFace(c.face(c.regular, footerSize))
		dc.DrawStringAnchored(c.site.Domain, Width/2, footerBase, 0.5, 0)
	}
	return encode(dc)
}

func (c *GGComposer) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull})
}

func (c *GGComposer) drawBadge(dc *gg.Context, label string, theme Theme) {
	label = strings.ToUpper(label)
	dc.SetFontFace(c.face(c.bold, badgeSize))
	w, h := dc.MeasureString(label)
	dc.SetColor(theme.Badge)
	dc.DrawRoundedRectangle(margin, badgeTop, w+2*badgePadX, h+2*badgePadY, (h+2*badgePadY)/2)
	dc.Fill()
	dc.SetColor(theme.BadgeLabel)
	dc.DrawStringAnchored(label, margin+badgePadX, badgeTop+badgePadY+h/2, 0, 0.5)
}

func (c *GGComposer) drawFooter(dc *gg.Context, site Identity) {
	dc.SetColor(rule)
	dc.SetLineWidth(2)
	dc.DrawLine(margin, footerBase-48, Width-margin, footerBase-48)
	dc.Stroke()

	dc.SetFontFace(c.face(c.bold, footerSize))
	dc.SetColor(white)
	dc.DrawString(site.Name, margin, footerBase)
	if site.Domain != "" {
		dc.SetFontFace(c.face(c.regular, footerSize))
		dc.SetColor(softWhite)
		dc.DrawStringAnchored(site.Domain, Width-margin, footerBase, 1, 0)
	}
}

// paintBackground fills a diagonal gradient and two soft highlights.
func paintBackground(dc *gg.Context, theme Theme) {
	grad := gg.NewLinearGradient(0, 0, Width, Height)
	grad.AddColorStop(0, theme.From)
	grad.AddColorStop(1, theme.To)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, Width, Height)
	dc.Fill()

	glow := func(x, y, r float64, alpha uint8) {
		hl := theme.Highlight
		inner := color.NRGBA{hl.R, hl.G, hl.B, alpha}
		outer := color.NRGBA{hl.R, hl.G, hl.B, 0}
		rg := gg.NewRadialGradient(x, y, 0, x, y, r)
		rg.AddColorStop(0, inner)
		rg.AddColorStop(1, outer)
		dc.SetFillStyle(rg)
		dc.DrawCircle(x, y, r)
		dc.Fill()
	}
	glow(Width-140, 110, 360, 0x59)
	glow(160, Height+60, 300, 0x40)
}

func encode(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, apperrors.Newf(apperrors.ErrRenderFailure, http.StatusInternalServerError, "encoding png: %v", err)
	}
	return buf.Bytes(), nil
}

// recoverRender turns a panic inside a drawing call into ErrRenderFailure.
func recoverRender(err *error) {
	if rec := recover(); rec != nil {
		*err = apperrors.Newf(apperrors.ErrRenderFailure, http.StatusInternalServerError, "render panic: %v", rec)
	}
}
