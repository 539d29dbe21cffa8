package content

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MaxDerivedExcerpt caps excerpts taken from the body when front matter has
// none.
const MaxDerivedExcerpt = 200

var excerptParser = goldmark.New().Parser()

// DeriveExcerpt returns the plain text of the first Markdown paragraph,
// cut at a word boundary so it is at most limit runes including the
// trailing "...".
func DeriveExcerpt(body []byte, limit int) string {
	doc := excerptParser.Parse(text.NewReader(body))

	var para ast.Node
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Kind() == ast.KindParagraph {
			para = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if para == nil {
		return ""
	}

	var sb strings.Builder
	_ = ast.Walk(para, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(body))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return clip(strings.Join(strings.Fields(sb.String()), " "), limit)
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if limit <= 3 || len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit-3])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.") + "..."
}
