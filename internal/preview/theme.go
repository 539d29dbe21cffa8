package preview

import (
	"image/color"

	"github.com/stockguides/site/internal/content"
)

// Theme is the palette a preview card is painted with.
type Theme struct {
	Name       string
	From       color.RGBA
	To         color.RGBA
	Highlight  color.RGBA
	Badge      color.RGBA
	BadgeLabel color.RGBA
}

var themes = map[string]Theme{
	content.CategoryBasics: {
		Name:       content.CategoryBasics,
		From:       color.RGBA{0x0e, 0xa5, 0xe9, 0xff},
		To:         color.RGBA{0x1e, 0x3a, 0x8a, 0xff},
		Highlight:  color.RGBA{0x7d, 0xd3, 0xfc, 0xff},
		Badge:      color.RGBA{0xe0, 0xf2, 0xfe, 0xff},
		BadgeLabel: color.RGBA{0x07, 0x59, 0x85, 0xff},
	},
	content.CategoryInvesting: {
		Name:       content.CategoryInvesting,
		From:       color.RGBA{0x10, 0xb9, 0x81, 0xff},
		To:         color.RGBA{0x06, 0x4e, 0x3b, 0xff},
		Highlight:  color.RGBA{0x6e, 0xe7, 0xb7, 0xff},
		Badge:      color.RGBA{0xd1, 0xfa, 0xe5, 0xff},
		BadgeLabel: color.RGBA{0x06, 0x5f, 0x46, 0xff},
	},
	content.CategoryTrading: {
		Name:       content.CategoryTrading,
		From:       color.RGBA{0xf9, 0x73, 0x16, 0xff},
		To:         color.RGBA{0x9a, 0x34, 0x12, 0xff},
		Highlight:  color.RGBA{0xfd, 0xba, 0x74, 0xff},
		Badge:      color.RGBA{0xff, 0xed, 0xd5, 0xff},
		BadgeLabel: color.RGBA{0x9a, 0x34, 0x12, 0xff},
	},
	content.CategoryAnalysis: {
		Name:       content.CategoryAnalysis,
		From:       color.RGBA{0x8b, 0x5c, 0xf6, 0xff},
		To:         color.RGBA{0x4c, 0x1d, 0x95, 0xff},
		Highlight:  color.RGBA{0xc4, 0xb5, 0xfd, 0xff},
		Badge:      color.RGBA{0xed, 0xe9, 0xfe, 0xff},
		BadgeLabel: color.RGBA{0x5b, 0x21, 0xb6, 0xff},
	},
	content.CategoryReviews: {
		Name:       content.CategoryReviews,
		From:       color.RGBA{0xf4, 0x3f, 0x5e, 0xff},
		To:         color.RGBA{0x88, 0x13, 0x37, 0xff},
		Highlight:  color.RGBA{0xfd, 0xa4, 0xaf, 0xff},
		Badge:      color.RGBA{0xff, 0xe4, 0xe6, 0xff},
		BadgeLabel: color.RGBA{0x9f, 0x12, 0x39, 0xff},
	},
}

// fallbackTheme paints the generic branded image.
var fallbackTheme = Theme{
	Name:      "fallback",
	From:      color.RGBA{0x0f, 0x17, 0x2a, 0xff},
	To:        color.RGBA{0x1e, 0x3a, 0x8a, 0xff},
	Highlight: color.RGBA{0x60, 0xa5, 0xfa, 0xff},
}

// ThemeFor returns the theme of an exact category name. Unknown categories
// get the Basics theme.
func ThemeFor(category string) Theme {
	if t, ok := themes[category]; ok {
		return t
	}
	return themes[content.CategoryBasics]
}
