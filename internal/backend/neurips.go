// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pdiddy/refcheck/internal/match"
	"github.com/pdiddy/refcheck/pkg/types"
)

// neuripsAPIBase is the NeurIPS proceedings search page. Declared as a
// var so tests can substitute an httptest server.
var neuripsAPIBase = "https://papers.nips.cc/search"

type neuripsQuerier struct {
	client    *http.Client
	userAgent string
	notify    func(time.Duration)
}

func (q *neuripsQuerier) Name() string { return "neurips" }

// lookup scrapes the proceedings search page. Each result is an anchor
// to a /paper page followed by an <i> element listing the authors.
func (q *neuripsQuerier) lookup(ctx context.Context, ref types.Reference) (*record, error) {
	words := match.QueryWords(ref.Title, maxQueryWords)
	if len(words) == 0 {
		return nil, nil
	}

	reqURL := neuripsAPIBase + "?q=" + url.QueryEscape(strings.Join(words, " "))
	resp, err := doGet(ctx, q.client, reqURL, q.userAgent, nil, q.notify)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing NeurIPS response: %w", err)
	}

	for _, entry := range neuripsEntries(doc) {
		if !match.TitlesMatch(ref.Title, entry.title) {
			continue
		}
		return &record{title: entry.title, authors: entry.authors}, nil
	}
	return nil, nil
}

type neuripsEntry struct {
	title   string
	authors []string
}

// neuripsEntries walks the parsed page and collects paper anchors with
// their author lines.
func neuripsEntries(doc *html.Node) []neuripsEntry {
	var entries []neuripsEntry
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && strings.Contains(attrVal(n, "href"), "/paper") {
			entry := neuripsEntry{title: strings.TrimSpace(nodeText(n))}
			if entry.title != "" {
				entry.authors = neuripsAuthorsAfter(n)
				entries = append(entries, entry)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return entries
}

// neuripsAuthorsAfter scans the siblings following a paper anchor for the
// <i> element carrying its comma-separated author list.
func neuripsAuthorsAfter(anchor *html.Node) []string {
	for sib := anchor.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && sib.Data == "a" {
			return nil
		}
		if sib.Type != html.ElementNode || sib.Data != "i" {
			continue
		}
		var authors []string
		for _, a := range strings.Split(nodeText(sib), ",") {
			if name := strings.TrimSpace(a); name != "" {
				authors = append(authors, name)
			}
		}
		return authors
	}
	return nil
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
