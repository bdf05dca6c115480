package export

import (
	"context"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/marker"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// newMarkdownConverter creates a reusable, goroutine-safe Converter:
//
//   - base plugin: drops script, style, head and other non-content nodes.
//   - commonmark plugin: ATX headings, "*" emphasis, ``` fences.
//   - table plugin: keeps tables as pipe tables.
//   - a <pre> renderer that strips blank edge lines inside code blocks.
func newMarkdownConverter() *converter.Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
				commonmark.WithEmDelimiter("*"),
				commonmark.WithCodeBlockFence("```"),
			),
			table.NewTablePlugin(),
		),
	)
	conv.Register.RendererFor("pre", converter.TagTypeBlock, renderPre, converter.PriorityEarly)
	return conv
}

// ToMarkdown converts a serialized DOM to Markdown. Relative links and
// images are resolved against origin.
func ToMarkdown(conv *converter.Converter, htmlContent, origin string) (string, error) {
	return conv.ConvertString(htmlContent, converter.WithDomain(origin))
}

func (e *Engine) exportMarkdown(ctx context.Context, src Source, path string) error {
	doc, err := src.HTML(ctx)
	if err != nil {
		return writeError("serialize dom", err)
	}
	origin, err := src.Origin(ctx)
	if err != nil {
		origin = ""
	}

	md, err := ToMarkdown(e.md, doc, origin)
	if err != nil {
		return writeError("convert to markdown", err)
	}
	return writeFile(path, []byte(md))
}

// renderPre writes a fenced code block for a <pre> element.
func renderPre(_ converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	sel := goquery.NewDocumentFromNode(n).Selection
	lang := codeLanguage(sel)

	code := trimBlankLines(preText(n))
	fence := codeFence(code)

	// Newlines inside the block are protected from the collapse step.
	code = strings.ReplaceAll(code, "\n", string(marker.MarkerCodeBlockNewline))

	w.WriteString("\n\n")
	w.WriteString(fence)
	w.WriteString(lang)
	w.WriteString("\n")
	w.WriteString(code)
	w.WriteString("\n")
	w.WriteString(fence)
	w.WriteString("\n\n")
	return converter.RenderSuccess
}

// preText returns the text of a <pre> subtree with <br> as newlines.
func preText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "textarea":
				return
			case "br":
				b.WriteString("\n")
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// codeLanguage reads a language-* or lang-* class from the <pre> or its
// first <code> child.
func codeLanguage(sel *goquery.Selection) string {
	var lang string
	sel.Find("code").AddBackFiltered("pre").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, class := range strings.Fields(s.AttrOr("class", "")) {
			switch {
			case strings.HasPrefix(class, "language-"):
				lang = strings.TrimPrefix(class, "language-")
			case strings.HasPrefix(class, "lang-"):
				lang = strings.TrimPrefix(class, "lang-")
			}
			if lang != "" {
				return false
			}
		}
		return true
	})
	return lang
}

// trimBlankLines drops whitespace-only lines at both ends of code and
// keeps everything in between untouched.
func trimBlankLines(code string) string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	lines := strings.Split(code, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// codeFence returns a backtick fence longer than any backtick run in code,
// and at least three long.
func codeFence(code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	n := longest + 1
	if n < 3 {
		n = 3
	}
	return strings.Repeat("`", n)
}
