// Package markdown renders coverage reports written in GitHub-flavored Markdown to HTML.
package markdown

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// DefaultStyle is the chroma style used for fenced code blocks.
const DefaultStyle = "monokai"

var (
	anchorStrip  = regexp.MustCompile(`[^a-z0-9\-\p{Han}\p{Hiragana}\p{Katakana}]`)
	anchorHyphen = regexp.MustCompile(`-+`)
)

// Heading is a table of contents entry
type Heading struct {
	Level  int    `json:"level"`
	Title  string `json:"title"`
	Anchor string `json:"anchor"`
}

// Document is a rendered Markdown source.
type Document struct {
	HTML  string    `json:"html"`
	TOC   []Heading `json:"toc"`
	Title string    `json:"title"`
}

// Renderer converts Markdown to HTML with GFM extensions and chroma highlighting.
// Raw HTML in the source is not passed through.
type Renderer struct {
	md    goldmark.Markdown
	style string
}

// NewRenderer creates a renderer using the given chroma style, or DefaultStyle if empty.
func NewRenderer(style string) *Renderer {
	if style == "" {
		style = DefaultStyle
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithXHTML(),
		),
	)
	return &Renderer{md: md, style: style}
}

// Render converts source to HTML and collects its headings.
func (r *Renderer) Render(source []byte) (*Document, error) {
	doc := r.md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	toc := headings(doc, source)
	title := ""
	if len(toc) > 0 {
		title = toc[0].Title
	}
	return &Document{
		HTML:  buf.String(),
		TOC:   toc,
		Title: title,
	}, nil
}

// CSS returns the stylesheet for highlighted code blocks.
func (r *Renderer) CSS() string {
	var buf bytes.Buffer
	style := styles.Get(r.style)
	if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&buf, style); err != nil {
		return ""
	}
	return buf.String()
}

// Page wraps a rendered document in a standalone HTML page.
func (r *Renderer) Page(d *Document) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(d.Title))
	b.WriteString("</title>\n<style>\n")
	b.WriteString(r.CSS())
	b.WriteString("</style>\n</head>\n<body>\n")
	if len(d.TOC) > 1 {
		b.WriteString("<nav>\n<ul>\n")
		for _, h := range d.TOC[1:] {
			fmt.Fprintf(&b, "<li class=\"toc-%d\"><a href=\"#%s\">%s</a></li>\n",
				h.Level, html.EscapeString(h.Anchor), html.EscapeString(h.Title))
		}
		b.WriteString("</ul>\n</nav>\n")
	}
	b.WriteString(d.HTML)
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func headings(doc ast.Node, source []byte) []Heading {
	var toc []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title := nodeText(h, source)
		anchor := Anchor(title)
		if id, ok := h.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				anchor = string(b)
			}
		}
		toc = append(toc, Heading{Level: h.Level, Title: title, Anchor: anchor})
		return ast.WalkSkipChildren, nil
	})
	return toc
}

// nodeText concatenates the text segments below n.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			continue
		}
		buf.WriteString(nodeText(child, source))
	}
	return buf.String()
}

// Anchor creates a URL-safe anchor from heading text.
func Anchor(s string) string {
	anchor := strings.ToLower(s)
	anchor = strings.ReplaceAll(anchor, " ", "-")
	anchor = anchorStrip.ReplaceAllString(anchor, "")
	anchor = anchorHyphen.ReplaceAllString(anchor, "-")
	return strings.Trim(anchor, "-")
}
