package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// MaxFrontMatterSize bounds the YAML header of a single document.
const MaxFrontMatterSize = 64 << 10

var (
	ErrNoFrontMatter     = errors.New("document has no front matter")
	ErrFrontMatterSize   = errors.New("front matter exceeds maximum size")
	ErrMissingTitle      = errors.New("front matter has no title")
	frontMatterDelimiter = []byte("---")
)

type frontMatter struct {
	Title       string     `yaml:"title"`
	Excerpt     string     `yaml:"excerpt"`
	Description string     `yaml:"description"`
	Category    string     `yaml:"category"`
	Author      string     `yaml:"author"`
	Date        string     `yaml:"date"`
	Blocks      []rawBlock `yaml:"blocks"`
}

// Document is a parsed content file before it is bound to a kind and slug.
type Document struct {
	Title       string
	Excerpt     string
	Category    string
	Author      string
	PublishedAt time.Time
	Body        string
	Blocks      []Block
}

// ParseDocument splits a Markdown file into its YAML front matter and body.
func ParseDocument(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	header, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, err
	}
	if len(header) > MaxFrontMatterSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrontMatterSize, len(header), MaxFrontMatterSize)
	}

	var fm frontMatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return nil, fmt.Errorf("parsing front matter: %w", err)
	}
	title := strings.TrimSpace(fm.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}
	blocks, err := decodeBlocks(fm.Blocks)
	if err != nil {
		return nil, fmt.Errorf("parsing front matter: %w", err)
	}

	excerpt := strings.TrimSpace(fm.Excerpt)
	if excerpt == "" {
		excerpt = strings.TrimSpace(fm.Description)
	}
	if excerpt == "" {
		excerpt = DeriveExcerpt(body, MaxDerivedExcerpt)
	}

	doc := &Document{
		Title:    title,
		Excerpt:  excerpt,
		Category: strings.TrimSpace(fm.Category),
		Author:   strings.TrimSpace(fm.Author),
		Body:     string(body),
		Blocks:   blocks,
	}
	if fm.Date != "" {
		if t, ok := parseDate(fm.Date); ok {
			doc.PublishedAt = t
		}
	}
	return doc, nil
}

func splitFrontMatter(data []byte) (header, body []byte, err error) {
	if !bytes.HasPrefix(data, frontMatterDelimiter) {
		return nil, nil, ErrNoFrontMatter
	}
	rest := data[len(frontMatterDelimiter):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return nil, nil, ErrNoFrontMatter
	}
	rest = rest[nl+1:]

	for offset := 0; offset <= len(rest); {
		end := bytes.IndexByte(rest[offset:], '\n')
		line := rest[offset:]
		if end >= 0 {
			line = rest[offset : offset+end]
		}
		if bytes.Equal(bytes.TrimRight(line, " \t"), frontMatterDelimiter) {
			header = rest[:offset]
			if end < 0 {
				return header, nil, nil
			}
			return header, rest[offset+end+1:], nil
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}
	return nil, nil, ErrNoFrontMatter
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
