package preview

import (
	"strings"

	"github.com/stockguides/site/internal/metadata"
)

const (
	Width  = 1200
	Height = 630

	maxTitleRunes = 80
	ellipsis      = "..."
)

// Identity is the fixed site branding printed on every card.
type Identity struct {
	Name    string
	Tagline string
	Domain  string
}

// Card is the fully resolved input of one composition.
type Card struct {
	Title    string
	Excerpt  string
	Category string
	Theme    Theme
	Site     Identity
}

// NewCard themes and truncates metadata for composition. The badge keeps the
// entry's own category; an unknown one only borrows the Basics palette.
func NewCard(md metadata.Metadata, site Identity) Card {
	theme := ThemeFor(md.Category)
	category := strings.TrimSpace(md.Category)
	if category == "" {
		category = theme.Name
	}
	return Card{
		Title:    TruncateTitle(md.Title),
		Excerpt:  md.Excerpt,
		Category: category,
		Theme:    theme,
		Site:     site,
	}
}

// TruncateTitle keeps titles of up to 80 runes; longer ones become their
// first 77 runes followed by "...".
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	return string(runes[:maxTitleRunes-len(ellipsis)]) + ellipsis
}
