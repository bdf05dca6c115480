package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// exportArchive writes the MHTML snapshot to path and the static HTML dump
// next to it. It returns the dump's path.
func (e *Engine) exportArchive(ctx context.Context, src Source, path string) (string, error) {
	mhtml, err := src.MHTML(ctx)
	if err != nil {
		return "", writeError("capture mhtml snapshot", err)
	}
	if err := writeFile(path, []byte(mhtml)); err != nil {
		return "", err
	}

	doc, err := src.HTML(ctx)
	if err != nil {
		return "", writeError("serialize dom", err)
	}
	origin, err := src.Origin(ctx)
	if err != nil {
		slog.Warn("page origin unavailable, html dump keeps relative links", "error", err)
	} else if withBase, err := InjectBase(doc, origin); err != nil {
		slog.Warn("base tag not injected", "error", err)
	} else {
		doc = withBase
	}

	htmlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".html"
	if err := writeFile(htmlPath, []byte(doc)); err != nil {
		return "", err
	}
	return htmlPath, nil
}

// InjectBase returns doc with <base href="origin/"> as the first child of
// <head>. A document that already has a <base> element is returned as is.
func InjectBase(doc, origin string) (string, error) {
	if origin == "" || origin == "null" {
		return doc, nil
	}
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	gq := goquery.NewDocumentFromNode(root)
	if gq.Find("base").Length() > 0 {
		return doc, nil
	}

	head := gq.Find("head").First()
	if head.Length() == 0 {
		return doc, nil
	}
	base := &html.Node{
		Type: html.ElementNode,
		Data: "base",
		Attr: []html.Attribute{{Key: "href", Val: strings.TrimSuffix(origin, "/") + "/"}},
	}
	h := head.Get(0)
	h.InsertBefore(base, h.FirstChild)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
