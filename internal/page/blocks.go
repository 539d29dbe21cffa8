package page

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/stockguides/site/internal/content"
)

const (
	sectionNone       = ""
	sectionFAQ        = "faq"
	sectionTakeaways  = "takeaways"
	sectionBrokerInfo = "rating"
)

// renderState is the mutable state of one page render. Render creates it
// and passes it down; it is never shared between requests.
type renderState struct {
	kind               content.Kind
	disclaimerInserted bool
	section            string
}

var blockTemplates = template.Must(template.New("blocks").Funcs(template.FuncMap{
	"score": func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) },
}).Parse(`
{{define "disclaimer"}}<aside class="disclaimer" role="note">Investing involves risk, including loss of principal. Nothing on this page is financial advice.</aside>
{{end}}
{{define "heading"}}<h2 class="block-heading">{{.}}</h2>
{{end}}
{{define "callout"}}<aside class="callout callout-{{.Tone}}">{{with .Title}}<strong>{{.}}</strong> {{end}}<p>{{.Text}}</p></aside>
{{end}}
{{define "faq"}}<dl class="faq">{{range .Items}}<dt>{{.Question}}</dt><dd>{{.Answer}}</dd>{{end}}</dl>
{{end}}
{{define "takeaways"}}<ul class="takeaways">{{range .Items}}<li>{{.}}</li>{{end}}</ul>
{{end}}
{{define "rating"}}<section class="rating"><p class="score"><span>{{score .Score}}</span> / 5</p>{{if .Pros}}<h3>Pros</h3><ul class="pros">{{range .Pros}}<li>{{.}}</li>{{end}}</ul>{{end}}{{if .Cons}}<h3>Cons</h3><ul class="cons">{{range .Cons}}<li>{{.}}</li>{{end}}</ul>{{end}}</section>
{{end}}
`))

// renderBlocks renders blocks in order. The switch covers every Block type;
// a type that reaches default is a programming error, not silent output.
func renderBlocks(st *renderState, blocks []content.Block) (template.HTML, error) {
	var buf bytes.Buffer
	for i, b := range blocks {
		var err error
		switch b := b.(type) {
		case content.Callout:
			st.section = sectionNone
			if b.Tone == "warning" {
				err = insertDisclaimer(&buf, st)
			}
			if err == nil {
				err = blockTemplates.ExecuteTemplate(&buf, "callout", b)
			}
		case content.FAQ:
			err = enterSection(&buf, st, sectionFAQ, "Frequently asked questions")
			if err == nil {
				err = blockTemplates.ExecuteTemplate(&buf, "faq", b)
			}
		case content.KeyTakeaways:
			err = enterSection(&buf, st, sectionTakeaways, "Key takeaways")
			if err == nil {
				err = blockTemplates.ExecuteTemplate(&buf, "takeaways", b)
			}
		case content.BrokerRating:
			err = insertDisclaimer(&buf, st)
			if err == nil {
				err = enterSection(&buf, st, sectionBrokerInfo, "Our rating")
			}
			if err == nil {
				err = blockTemplates.ExecuteTemplate(&buf, "rating", b)
			}
		default:
			err = fmt.Errorf("%w: %T", content.ErrUnknownBlock, b)
		}
		if err != nil {
			return "", fmt.Errorf("rendering block %d: %w", i, err)
		}
	}
	if st.kind == content.KindBroker {
		if err := insertDisclaimer(&buf, st); err != nil {
			return "", err
		}
	}
	return template.HTML(buf.String()), nil
}

// enterSection writes a heading only when the section changes, so
// consecutive blocks of one kind share it.
func enterSection(buf *bytes.Buffer, st *renderState, section, heading string) error {
	if st.section == section {
		return nil
	}
	st.section = section
	return blockTemplates.ExecuteTemplate(buf, "heading", heading)
}

func insertDisclaimer(buf *bytes.Buffer, st *renderState) error {
	if st.disclaimerInserted {
		return nil
	}
	st.disclaimerInserted = true
	return blockTemplates.ExecuteTemplate(buf, "disclaimer", nil)
}
