package page

import (
	"time"

	"github.com/stockguides/site/internal/content"
)

const schemaContext = "https://schema.org"

type thing struct {
	Type string `json:"@type"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type article struct {
	Context       string  `json:"@context"`
	Type          string  `json:"@type"`
	Headline      string  `json:"headline"`
	Description   string  `json:"description,omitempty"`
	Image         string  `json:"image"`
	URL           string  `json:"url"`
	Section       string  `json:"articleSection,omitempty"`
	DatePublished string  `json:"datePublished,omitempty"`
	DateModified  string  `json:"dateModified"`
	Author        *thing  `json:"author,omitempty"`
	Publisher     thing   `json:"publisher"`
	Rating        *review `json:"reviewRating,omitempty"`
}

type review struct {
	Type        string  `json:"@type"`
	RatingValue float64 `json:"ratingValue"`
	BestRating  float64 `json:"bestRating"`
	WorstRating float64 `json:"worstRating"`
}

type listItem struct {
	Type     string `json:"@type"`
	Position int    `json:"position"`
	Name     string `json:"name"`
	Item     string `json:"item"`
}

type breadcrumbList struct {
	Context string     `json:"@context"`
	Type    string     `json:"@type"`
	Items   []listItem `json:"itemListElement"`
}

type answer struct {
	Type string `json:"@type"`
	Text string `json:"text"`
}

type question struct {
	Type   string `json:"@type"`
	Name   string `json:"name"`
	Answer answer `json:"acceptedAnswer"`
}

type faqPage struct {
	Context string     `json:"@context"`
	Type    string     `json:"@type"`
	Items   []question `json:"mainEntity"`
}

// crumb is one breadcrumb step, shared by the visible trail and the
// BreadcrumbList schema.
type crumb struct {
	Name string
	URL  string
}

// structuredData returns the JSON-LD documents for one entry: Article, then
// BreadcrumbList, then FAQPage when the entry has FAQ blocks.
func structuredData(e *content.Entry, siteName, origin, pageURL, imageURL string, crumbs []crumb) []any {
	a := article{
		Context:      schemaContext,
		Type:         "Article",
		Headline:     e.Title,
		Description:  e.Excerpt,
		Image:        imageURL,
		URL:          pageURL,
		Section:      e.Category,
		DateModified: e.LastModified.UTC().Format(time.RFC3339),
		Publisher:    thing{Type: "Organization", Name: siteName, URL: origin},
	}
	if e.Kind == content.KindBroker {
		a.Type = "Review"
	}
	if !e.PublishedAt.IsZero() {
		a.DatePublished = e.PublishedAt.UTC().Format(time.RFC3339)
	}
	if e.Author != "" {
		a.Author = &thing{Type: "Person", Name: e.Author}
	}

	var faqs []question
	for _, b := range e.Blocks {
		switch b := b.(type) {
		case content.FAQ:
			for _, it := range b.Items {
				faqs = append(faqs, question{
					Type:   "Question",
					Name:   it.Question,
					Answer: answer{Type: "Answer", Text: it.Answer},
				})
			}
		case content.BrokerRating:
			if a.Rating == nil {
				a.Rating = &review{Type: "Rating", RatingValue: b.Score, BestRating: 5, WorstRating: 0}
			}
		}
	}

	bl := breadcrumbList{Context: schemaContext, Type: "BreadcrumbList"}
	for i, c := range crumbs {
		bl.Items = append(bl.Items, listItem{Type: "ListItem", Position: i + 1, Name: c.Name, Item: c.URL})
	}

	out := []any{a, bl}
	if len(faqs) > 0 {
		out = append(out, faqPage{Context: schemaContext, Type: "FAQPage", Items: faqs})
	}
	return out
}
