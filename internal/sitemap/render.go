package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"
)

const namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type xmlIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Xmlns    string       `xml:"xmlns,attr"`
	Sitemaps []xmlSitemap `xml:"sitemap"`
}

type xmlSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// RenderXML emits a sitemaps.org urlset, or a sitemapindex for an index
// set. An empty set yields an empty root element.
func RenderXML(s Set) ([]byte, error) {
	var doc any
	if s.Index {
		idx := xmlIndex{Xmlns: namespace, Sitemaps: make([]xmlSitemap, 0, len(s.Entries))}
		for _, e := range s.Entries {
			idx.Sitemaps = append(idx.Sitemaps, xmlSitemap{Loc: e.Loc, LastMod: timestamp(e.LastModified)})
		}
		doc = idx
	} else {
		set := xmlURLSet{Xmlns: namespace, URLs: make([]xmlURL, 0, len(s.Entries))}
		for _, e := range s.Entries {
			set.URLs = append(set.URLs, xmlURL{
				Loc:        e.Loc,
				LastMod:    timestamp(e.LastModified),
				ChangeFreq: e.ChangeFrequency,
				Priority:   priority(e.Priority),
			})
		}
		doc = set
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding sitemap xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

type htmlRow struct {
	Loc             string
	LastModified    string
	ChangeFrequency string
	Priority        string
}

type htmlLink struct {
	Label   string
	Href    string
	Current bool
}

type htmlPage struct {
	Title    string
	SiteName string
	Index    bool
	Count    int
	Rows     []htmlRow
	Crumbs   []htmlLink
	Siblings []htmlLink
}

var pageTemplate = template.Must(template.New("sitemap").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex">
<title>{{.Title}} | {{.SiteName}}</title>
<style>
body{font-family:system-ui,-apple-system,sans-serif;margin:0;background:#f8fafc;color:#0f172a}
main{max-width:960px;margin:0 auto;padding:32px 20px}
nav.crumbs{font-size:14px;color:#64748b;margin-bottom:12px}
nav.crumbs a{color:#2563eb;text-decoration:none}
h1{font-size:28px;margin:0 0 8px}
p.count{color:#475569;margin:0 0 20px}
ul.siblings{list-style:none;padding:0;display:flex;gap:8px;flex-wrap:wrap;margin:0 0 24px}
ul.siblings a{display:inline-block;padding:6px 14px;border-radius:999px;background:#e2e8f0;color:#0f172a;text-decoration:none;font-size:14px}
ul.siblings a.current{background:#1e3a8a;color:#fff}
table{width:100%;border-collapse:collapse;background:#fff;box-shadow:0 1px 3px rgba(15,23,42,.08)}
th,td{text-align:left;padding:10px 14px;border-bottom:1px solid #e2e8f0;font-size:14px}
th{background:#f1f5f9;font-weight:600}
td a{color:#2563eb;word-break:break-all}
</style>
</head>
<body>
<main>
<nav class="crumbs">{{range $i, $c := .Crumbs}}{{if $i}} &rsaquo; {{end}}{{if $c.Current}}<span>{{$c.Label}}</span>{{else}}<a href="{{$c.Href}}">{{$c.Label}}</a>{{end}}{{end}}</nav>
<h1>{{.Title}}</h1>
<p class="count">{{.Count}} {{if eq .Count 1}}entry{{else}}entries{{end}}</p>
<ul class="siblings">{{range .Siblings}}<li><a href="{{.Href}}"{{if .Current}} class="current"{{end}}>{{.Label}}</a></li>{{end}}</ul>
{{if .Rows}}<table>
<thead><tr><th>URL</th><th>Last modified</th>{{if not .Index}}<th>Change frequency</th><th>Priority</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr><td><a href="{{.Loc}}">{{.Loc}}</a></td><td>{{.LastModified}}</td>{{if not $.Index}}<td>{{.ChangeFrequency}}</td><td>{{.Priority}}</td>{{end}}</tr>
{{end}}</tbody>
</table>{{else}}<p>This sitemap has 0 entries.</p>{{end}}
</main>
</body>
</html>
`))

var titles = map[string]string{
	KindGuide:  "Guides",
	KindBroker: "Broker reviews",
	KindPage:   "Pages",
}

// RenderHTML emits a standalone page listing the same entries RenderXML
// would, with a breadcrumb trail and links to the sibling sitemaps.
func RenderHTML(s Set, siteName string) ([]byte, error) {
	page := htmlPage{
		Title:    "Sitemap index",
		SiteName: siteName,
		Index:    s.Index,
		Count:    len(s.Entries),
		Rows:     make([]htmlRow, 0, len(s.Entries)),
		Crumbs:   []htmlLink{{Label: "Home", Href: "/"}},
	}
	if s.Index {
		page.Crumbs = append(page.Crumbs, htmlLink{Label: "Sitemap", Current: true})
	} else {
		page.Title = titleOf(s.Kind) + " sitemap"
		page.Crumbs = append(page.Crumbs,
			htmlLink{Label: "Sitemap", Href: "/sitemap-index"},
			htmlLink{Label: titleOf(s.Kind), Current: true},
		)
	}
	page.Siblings = append(page.Siblings, htmlLink{Label: "Index", Href: "/sitemap-index", Current: s.Index})
	for _, kind := range Kinds {
		page.Siblings = append(page.Siblings, htmlLink{
			Label:   titleOf(kind),
			Href:    "/sitemap/" + kind,
			Current: !s.Index && kind == s.Kind,
		})
	}
	for _, e := range s.Entries {
		page.Rows = append(page.Rows, htmlRow{
			Loc:             e.Loc,
			LastModified:    timestamp(e.LastModified),
			ChangeFrequency: e.ChangeFrequency,
			Priority:        priority(e.Priority),
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("rendering sitemap html: %w", err)
	}
	return buf.Bytes(), nil
}

func titleOf(kind string) string {
	if t, ok := titles[kind]; ok {
		return t
	}
	if kind == "" {
		return "Sitemap"
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// priority formats with one decimal; zero is omitted.
func priority(p float64) string {
	if p <= 0 {
		return ""
	}
	return strconv.FormatFloat(p, 'f', 1, 64)
}
