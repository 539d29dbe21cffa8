// Package content is the read side of the content store: guides and broker
// reviews authored as Markdown files with YAML front matter.
package content

import (
	"regexp"
	"time"
)

// Kind partitions the store. A slug is unique within its kind.
type Kind string

const (
	KindGuide  Kind = "guide"
	KindBroker Kind = "broker"
)

// Kinds lists every content kind in publication order.
var Kinds = []Kind{KindGuide, KindBroker}

// ParseKind validates a kind taken from a URL.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindGuide, KindBroker:
		return Kind(s), true
	}
	return "", false
}

// Dir is the store sub-directory holding entries of this kind.
func (k Kind) Dir() string {
	switch k {
	case KindBroker:
		return "brokers"
	default:
		return "guides"
	}
}

// PathPrefix is the public URL prefix of a rendered entry.
func (k Kind) PathPrefix() string {
	return "/" + k.Dir() + "/"
}

// DefaultCategory is used when front matter omits a category.
func (k Kind) DefaultCategory() string {
	if k == KindBroker {
		return CategoryReviews
	}
	return CategoryBasics
}

const (
	CategoryBasics    = "Basics"
	CategoryInvesting = "Investing"
	CategoryTrading   = "Trading"
	CategoryAnalysis  = "Analysis"
	CategoryReviews   = "Reviews"
)

// Entry is one published item.
type Entry struct {
	Kind         Kind
	Slug         string
	Title        string
	Excerpt      string
	Category     string
	Author       string
	PublishedAt  time.Time
	Body         string
	Blocks       []Block
	LastModified time.Time
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a URL-safe slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
